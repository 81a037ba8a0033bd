// Package idgen generates short, URL-safe identifiers for forms, requests
// and backup runs. Every id is a kind prefix followed by Length random
// characters from Alphabet, e.g. "fm-Q3x9ZkT0aB".
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind is the prefix naming what an id identifies.
type Kind string

const (
	KindForm    Kind = "fm-"
	KindRequest Kind = "rq-"
	KindBackup  Kind = "bk-"
)

var kinds = []Kind{KindForm, KindRequest, KindBackup}

// Alphabet is the character set of the random part.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters after the prefix.
const Length = 10

// New returns a fresh id of kind k.
func New(k Kind) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen %s: %w", strings.TrimSuffix(string(k), "-"), err)
	}
	return string(k) + id, nil
}

// must is used for ids that only tag logs and events; a generator failure
// degrades to a recognisable placeholder instead of failing the caller.
func must(k Kind) string {
	id, err := New(k)
	if err != nil {
		return string(k) + "unknown"
	}
	return id
}

func FormID() string { return must(KindForm) }
func RequestID() string { return must(KindRequest) }
func BackupID() string { return must(KindBackup) }

// KindOf returns the kind of a well-formed id.
func KindOf(id string) (Kind, bool) {
	for _, k := range kinds {
		rest, ok := strings.CutPrefix(id, string(k))
		if ok && len(rest) == Length && strings.Trim(rest, Alphabet) == "" {
			return k, true
		}
	}
	return "", false
}
