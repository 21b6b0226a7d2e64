// Package numbering issues human-readable document references.
package numbering

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
)

// TokenLength is the number of random characters in a reference.
const TokenLength = 6

// Clock abstracts wall time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads UTC wall time.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var prefixes = map[documents.Kind]string{
	documents.KindSales:    "INV",
	documents.KindPurchase: "PO",
}

// Prefix returns the reference prefix for kind.
func Prefix(kind documents.Kind) string {
	if p, ok := prefixes[kind]; ok {
		return p
	}
	return "DOC"
}

// Generator builds references of the form PREFIX-YYYYMMDD-XXXXXX.
type Generator struct {
	token func() string
}

// NewGenerator returns a generator drawing tokens from random UUIDs.
func NewGenerator() *Generator {
	return &Generator{token: randomToken}
}

// NewGeneratorWithToken returns a generator with a fixed token source.
func NewGeneratorWithToken(token func() string) *Generator {
	return &Generator{token: token}
}

// NextReference returns a fresh reference. Uniqueness is enforced by the
// store; callers retry on conflict.
func (g *Generator) NextReference(kind documents.Kind, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", Prefix(kind), now.UTC().Format("20060102"), g.token())
}

func randomToken() string {
	id := uuid.New()
	return base32.StdEncoding.EncodeToString(id[:])[:TokenLength]
}
