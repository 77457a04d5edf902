// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	t.Run("structured block inside prose", func(t *testing.T) {
		reply := ParseReply("Berikut hasilnya:\n```json\n{\"message\":\"Ditemukan 2 transaksi\",\"transactions\":[{\"product\":\"Kopi\",\"qty\":2,\"price\":5000},{\"product\":\"Roti\",\"qty\":1,\"price\":12000}]}\n```")

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Equal(t, "Ditemukan 2 transaksi", reply.Message)
		assert.Len(t, reply.Candidates, 2)
	})

	t.Run("missing message gets default", func(t *testing.T) {
		reply := ParseReply(`{"transactions":[]}`)

		assert.Equal(t, ReplyStructured, reply.Kind)
		assert.Equal(t, DefaultAnalysisMessage, reply.Message)
		assert.Empty(t, reply.Candidates)
	})

	t.Run("no block keeps text", func(t *testing.T) {
		reply := ParseReply("  Maaf, file ini tidak berisi transaksi.  ")

		assert.Equal(t, ReplyMessageOnly, reply.Kind)
		assert.Equal(t, "Maaf, file ini tidak berisi transaksi.", reply.Message)
	})

	t.Run("undecodable block keeps text", func(t *testing.T) {
		text := `Hasil: {"message": "oops", "transactions": [ {"product": } ]}`
		reply := ParseReply(text)

		assert.Equal(t, ReplyMessageOnly, reply.Kind)
		assert.Equal(t, text, reply.Message)
	})

	t.Run("outermost block spans first to last brace", func(t *testing.T) {
		reply := ParseReply(`{"message":"a"} dan {"message":"b"}`)
		assert.Equal(t, ReplyMessageOnly, reply.Kind, "two sibling objects are not one JSON value")
	})

	t.Run("blank is unparseable", func(t *testing.T) {
		assert.Equal(t, ReplyUnparseable, ParseReply("").Kind)
		assert.Equal(t, ReplyUnparseable, ParseReply(" \n\t").Kind)
	})
}

func TestParseThenFilter_ZeroQuantity(t *testing.T) {
	reply := ParseReply(`{"message":"Ditemukan 1 transaksi","transactions":[{"product":"Kopi","qty":0,"price":5000}]}`)
	require.Equal(t, ReplyStructured, reply.Kind)

	assert.Empty(t, FilterCandidates(reply.Candidates))
	assert.Equal(t, "Ditemukan 1 transaksi", reply.Message)
}
