package playlist

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// TrackRef is the part of a stored track selection the reconciler needs.
type TrackRef struct {
	URI string `json:"uri"`
}

// Submission is one guest's answer to a playlist question.
type Submission struct {
	ResponseID  uint
	SubmittedAt time.Time
	Value       string
}

// ParseSelection decodes a stored answer: a JSON array of track objects or a
// single track object. Anything else, including malformed JSON, yields no
// tracks. Elements without a string "uri" are skipped.
func ParseSelection(raw string) []TrackRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		refs := make([]TrackRef, 0, len(items))
		for _, item := range items {
			if ref, ok := decodeRef(item); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}

	if ref, ok := decodeRef([]byte(raw)); ok {
		return []TrackRef{ref}
	}
	return nil
}

func decodeRef(data []byte) (TrackRef, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return TrackRef{}, false
	}
	rawURI, ok := obj["uri"]
	if !ok {
		return TrackRef{}, false
	}
	var uri string
	if err := json.Unmarshal(rawURI, &uri); err != nil {
		return TrackRef{}, false
	}
	return TrackRef{URI: uri}, true
}

// DistinctTracks counts the distinct non-empty track URIs in an answer.
func DistinctTracks(raw string) int {
	seen := map[string]struct{}{}
	for _, ref := range ParseSelection(raw) {
		if ref.URI != "" {
			seen[ref.URI] = struct{}{}
		}
	}
	return len(seen)
}

// DesiredURIs merges all submissions into the playlist's target track list.
// Tracks are ordered by (submission time, position within the answer) and
// each URI is kept at its first occurrence.
func DesiredURIs(subs []Submission) []string {
	type entry struct {
		uri   string
		at    time.Time
		resp  uint
		index int
	}

	var entries []entry
	for _, sub := range subs {
		for i, ref := range ParseSelection(sub.Value) {
			if ref.URI == "" {
				continue
			}
			entries = append(entries, entry{uri: ref.URI, at: sub.SubmittedAt, resp: sub.ResponseID, index: i})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		if a.resp != b.resp {
			return a.resp < b.resp
		}
		return a.index < b.index
	})

	seen := make(map[string]struct{}, len(entries))
	uris := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.uri]; dup {
			continue
		}
		seen[e.uri] = struct{}{}
		uris = append(uris, e.uri)
	}
	return uris
}

// chunk splits uris into consecutive batches of at most size.
func chunk(uris []string, size int) [][]string {
	var batches [][]string
	for len(uris) > 0 {
		n := size
		if len(uris) < n {
			n = len(uris)
		}
		batches = append(batches, uris[:n])
		uris = uris[n:]
	}
	return batches
}
