// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package assistant answers short questions about the portal's features.

Answers come from the generative model under a fixed instruction that refuses
anything unrelated to Warung Pintar, and are cleaned into a few sentences of
plain text before they reach the chat window.
*/
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taibuivan/warungpintar/internal/inference"
	"github.com/taibuivan/warungpintar/internal/platform/ctxutil"
)

// Greeting is the first message of every conversation.
const Greeting = "Halo! 👋 Saya asisten virtual Warung Pintar. Ada yang bisa saya bantu hari ini?"

// HistoryLimit is the number of earlier turns sent with a question.
const HistoryLimit = 10

// defaultFileQuestion stands in for an empty message sent with a file.
const defaultFileQuestion = "Tolong analisis file ini"

// ErrEmptyQuestion is returned when neither a message nor a file was sent.
var ErrEmptyQuestion = errors.New("assistant: empty question")

const instruction = `Kamu asisten Warung Pintar. PENTING:

1. TOLAK pertanyaan di luar Warung Pintar dengan: "Maaf, saya hanya bisa membantu seputar fitur Warung Pintar seperti transaksi, produk, laporan, dan profil."

2. Untuk pertanyaan tentang Warung Pintar, jawab SINGKAT tapi LENGKAP (2-3 kalimat).

FITUR WARUNG PINTAR:
- Menu Transaksi: Input penjualan manual atau upload file CSV/Excel
- Menu Produk: Tambah, edit, hapus produk dan kelola stok
- Menu Laporan: Lihat laporan penjualan harian/bulanan, export PDF
- Menu Profil: Edit nama usaha, kategori, alamat, ganti password
- Dashboard: Lihat omset hari ini dan grafik penjualan

CONTOH JAWABAN BENAR:
Q: Cara tambah produk?
A: Klik menu Produk di sidebar, lalu tekan tombol "Tambah Produk". Isi nama, harga, dan stok produk, kemudian simpan.

Q: Cara post di Instagram?
A: Maaf, saya hanya bisa membantu seputar fitur Warung Pintar seperti transaksi, produk, laporan, dan profil.

ATURAN:
- Tanpa markdown (**, #, -, dll)
- Bahasa Indonesia yang jelas
- Langsung ke intinya`

// chatSettings keep replies short.
var chatSettings = inference.Settings{
	Temperature:     0.3,
	TopK:            20,
	TopP:            0.8,
	MaxOutputTokens: 150,
}

// Generator is the model call the assistant builds on.
type Generator interface {
	Generate(ctx context.Context, request inference.Request) (string, error)
}

// File is a document attached to a question.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Question is one chat message with its context.
type Question struct {
	Message string
	// History is the conversation so far, oldest first.
	History []inference.Turn
	File    *File
}

// Assistant answers questions through a [Generator].
type Assistant struct {
	generator Generator
}

// New constructs an [Assistant].
func New(generator Generator) *Assistant {
	return &Assistant{generator: generator}
}

// Ask sends question to the model and returns the cleaned reply.
func (assistant *Assistant) Ask(ctx context.Context, question Question) (string, error) {
	message := strings.TrimSpace(question.Message)
	if message == "" && question.File == nil {
		return "", ErrEmptyQuestion
	}

	request := inference.Request{
		History:      recentHistory(question.History),
		Prompt:       promptFor(message, question),
		Settings:     chatSettings,
		SafetyFilter: true,
	}
	if question.File != nil {
		request.Attachment = &inference.Attachment{MediaType: question.File.MediaType, Data: question.File.Data}
	}

	text, err := assistant.generator.Generate(ctx, request)
	if err != nil {
		return "", err
	}

	reply := Shorten(Clean(text))
	if reply == "" {
		return "", inference.ErrEmptyReply
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "assistant_answered",
		slog.Int("history", len(request.History)),
		slog.Bool("with_file", question.File != nil),
		slog.Int("reply_length", len(reply)),
	)
	return reply, nil
}

// promptFor builds the final user turn. The instruction rides along with the
// first question of a conversation and with every file.
func promptFor(message string, question Question) string {
	if question.File != nil {
		if message == "" {
			message = defaultFileQuestion
		}
		return instruction + "\n\nUser mengirim file dengan nama: " + question.File.Name + "\nPesan user: " + message
	}
	if len(question.History) == 0 {
		return instruction + "\n\nPertanyaan user: " + message
	}
	return message
}

// recentHistory keeps the last [HistoryLimit] turns. The model expects a
// conversation to open with a user turn, so leading model turns (such as the
// greeting) are dropped.
func recentHistory(history []inference.Turn) []inference.Turn {
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	for len(history) > 0 && history[0].Role != inference.RoleUser {
		history = history[1:]
	}
	return append([]inference.Turn(nil), history...)
}
