package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ListFiles returns the journal files in dir, oldest first.
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "calls-") && strings.HasSuffix(name, FileSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadFile calls fn for every entry in a journal file. It stops at the
// first error from fn.
func ReadFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: unmarshal: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}

// OpStats aggregates the entries of one operation.
type OpStats struct {
	Calls   int
	Errors  int
	Dropped int
	Micros  int64
	Codes   map[string]int
}

type Summary struct {
	Sessions map[string]int
	Ops      map[string]*OpStats
}

func NewSummary() *Summary {
	return &Summary{Sessions: map[string]int{}, Ops: map[string]*OpStats{}}
}

func (s *Summary) Add(e Entry) {
	s.Sessions[e.Session]++
	st := s.Ops[e.Op]
	if st == nil {
		st = &OpStats{Codes: map[string]int{}}
		s.Ops[e.Op] = st
	}
	switch e.Kind {
	case KindDrops:
		st.Dropped += e.Dropped
	default:
		st.Calls++
		st.Micros += e.Micros
		if e.Code != "" || e.Err != "" {
			st.Errors++
			st.Codes[e.Code]++
		}
	}
}

// OpNames returns the summarized operations in name order.
func (s *Summary) OpNames() []string {
	out := make([]string, 0, len(s.Ops))
	for k := range s.Ops {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
