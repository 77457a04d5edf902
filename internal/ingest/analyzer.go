// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"

	"github.com/taibuivan/warungpintar/internal/inference"
)

// Analyzer reads a document and returns the model's free-form reply.
type Analyzer interface {
	Analyze(ctx context.Context, file UploadedFile) (string, error)
}

// Generator is the model call [ModelAnalyzer] builds on.
type Generator interface {
	Generate(ctx context.Context, request inference.Request) (string, error)
}

// analysisSettings favour deterministic extraction over creativity.
var analysisSettings = inference.Settings{
	Temperature:     0.2,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

const analysisInstruction = `Kamu adalah asisten untuk menganalisis file transaksi bisnis.

TUGAS:
1. Analisis file yang diberikan (bisa berupa CSV, Excel, atau foto struk/nota)
2. Ekstrak data transaksi yang ada (nama produk, jumlah, harga)
3. Kembalikan hasil dalam format JSON

PENTING:
- Jika file adalah CSV/Excel: Ekstrak kolom yang relevan (nama item, qty, harga)
- Jika file adalah foto struk: Baca teks dan ekstrak item yang terlihat
- Jawab SINGKAT, langsung ke data

FORMAT RESPON (harus valid JSON):
{
  "message": "Ditemukan X transaksi dari file",
  "transactions": [
    {"product": "Nama Produk", "qty": 1, "price": 10000},
    {"product": "Produk Lain", "qty": 2, "price": 5000}
  ]
}

Jika tidak bisa membaca file atau tidak ada data transaksi:
{
  "message": "Tidak dapat mengekstrak data transaksi dari file ini",
  "transactions": []
}`

// ModelAnalyzer asks the generative model to extract transactions.
type ModelAnalyzer struct {
	generator Generator
}

// NewModelAnalyzer constructs a [ModelAnalyzer].
func NewModelAnalyzer(generator Generator) *ModelAnalyzer {
	return &ModelAnalyzer{generator: generator}
}

// Analyze implements [Analyzer]: the fixed instruction plus the file inlined.
func (analyzer *ModelAnalyzer) Analyze(ctx context.Context, file UploadedFile) (string, error) {
	return analyzer.generator.Generate(ctx, inference.Request{
		Prompt:     analysisInstruction,
		Attachment: &inference.Attachment{MediaType: file.MediaType, Data: file.Data},
		Settings:   analysisSettings,
	})
}
