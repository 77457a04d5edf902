// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"context"
	"net/http"
)

func contextWithToken(request *http.Request, token string) context.Context {
	return context.WithValue(request.Context(), tokenKey{}, token)
}

func tokenFrom(request *http.Request) string {
	token, _ := request.Context().Value(tokenKey{}).(string)
	return token
}
