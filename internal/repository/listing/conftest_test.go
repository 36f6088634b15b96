package listing

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/herdask/internal/db"
)

// mockStore serves SCAN pages and hashes from memory.
type mockStore struct {
	pages     []db.ScanPage // indexed by call order
	hashes    map[string]map[string]string
	scanErr   error
	hgetErr   error
	scanCalls int
	patterns  []string
}

func (m *mockStore) ScanPage(_ context.Context, pattern string, _ uint64) (db.ScanPage, error) {
	m.patterns = append(m.patterns, pattern)
	if m.scanErr != nil {
		return db.ScanPage{}, m.scanErr
	}
	if m.scanCalls >= len(m.pages) {
		return db.ScanPage{}, nil
	}
	p := m.pages[m.scanCalls]
	m.scanCalls++
	return p, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetErr != nil {
		return nil, m.hgetErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		if h, ok := m.hashes[k]; ok {
			out[i] = h
		} else {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
