package prompt

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

// Source supplies a ready-to-submit prompt on demand.
type Source interface {
	Next() (string, error)
}

// Literal always returns the same prompt.
type Literal string

func (l Literal) Next() (string, error) {
	if strings.TrimSpace(string(l)) == "" {
		return "", errors.New("empty prompt")
	}
	return string(l), nil
}

// TemplateSource draws a fresh variation of one template per call.
type TemplateSource struct {
	manager *Manager
	name    string
}

func NewTemplateSource(m *Manager, name string) (*TemplateSource, error) {
	if _, err := m.Get(name); err != nil {
		return nil, err
	}
	return &TemplateSource{manager: m, name: name}, nil
}

func (s *TemplateSource) Next() (string, error) {
	return s.manager.Generate(s.name)
}

const BankBasePrompt = "CRYPTO,MEME,HYPERPOP,INTERNET,YOUTHFUL,2024"

// BankSource appends one to three distinct random words from a word bank to a base prompt.
type BankSource struct {
	base  string
	words []string
	rand  *rand.Rand
}

// LoadBank reads comma separated words, any number per line.
func LoadBank(path string) (*BankSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt bank: %w", err)
	}
	return NewBankSource(BankBasePrompt, parseBank(string(data)), rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewBankSource(base string, words []string, r *rand.Rand) (*BankSource, error) {
	if len(words) == 0 {
		return nil, errors.New("prompt bank is empty")
	}
	return &BankSource{base: base, words: words, rand: r}, nil
}

func parseBank(data string) []string {
	var words []string
	for _, line := range strings.Split(data, "\n") {
		for _, w := range strings.Split(line, ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
	}
	return words
}

func (b *BankSource) Next() (string, error) {
	n := 1 + b.rand.Intn(3)
	if n > len(b.words) {
		n = len(b.words)
	}
	picked := b.rand.Perm(len(b.words))[:n]

	var sb strings.Builder
	sb.WriteString(b.base)
	for _, i := range picked {
		sb.WriteString(",")
		sb.WriteString(b.words[i])
	}
	return sb.String(), nil
}
