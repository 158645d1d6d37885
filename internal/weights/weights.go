// Package weights stores the flat lookup tables behind the tuple network.
//
// The persisted layout is a little-endian uint32 table count followed by
// every table's float32 entries in index order. Tables carry no length of
// their own, so the reader must already know the per-table entry count.
package weights

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/chewxy/math32"
)

// Table is one dense array of weights addressed by an integer key
type Table []float32

// Store owns a fixed number of equally sized tables
type Store struct {
	tables []Table
	size   int
}

// New allocates count tables of size zero entries
func New(count, size int) *Store {
	s := &Store{tables: make([]Table, count), size: size}
	for i := range s.tables {
		s.tables[i] = make(Table, size)
	}
	return s
}

// Len returns the number of tables
func (s *Store) Len() int { return len(s.tables) }

// Size returns the number of entries in each table
func (s *Store) Size() int { return s.size }

// Table returns table i. Writes through the returned slice update the store.
func (s *Store) Table(i int) Table { return s.tables[i] }

// Load reads a weights file whose tables each hold size entries
func Load(path string, size int) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weights file: %w", err)
	}
	defer f.Close()

	return LoadFromReader(bufio.NewReaderSize(f, 1<<20), size)
}

// LoadFromReader reads the table count and then every table from r
func LoadFromReader(r io.Reader, size int) (*Store, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading table count: %w", err)
	}

	s := &Store{tables: make([]Table, count), size: size}
	for i := range s.tables {
		t := make(Table, size)
		if err := binary.Read(r, binary.LittleEndian, []float32(t)); err != nil {
			return nil, fmt.Errorf("reading table %d: %w", i, err)
		}
		s.tables[i] = t
	}
	return s, nil
}

// Save writes the store to path, replacing any existing file
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating weights file: %w", err)
	}

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := s.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing weights file: %w", err)
	}
	return f.Close()
}

// WriteTo writes the table count followed by every table in order
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.tables))); err != nil {
		return n, fmt.Errorf("writing table count: %w", err)
	}
	n += 4
	for i, t := range s.tables {
		if err := binary.Write(w, binary.LittleEndian, []float32(t)); err != nil {
			return n, fmt.Errorf("writing table %d: %w", i, err)
		}
		n += int64(len(t)) * 4
	}
	return n, nil
}

// Stats summarizes how much of the store has been trained
type Stats struct {
	Tables  int
	Entries int
	NonZero int
	MaxAbs  float32
}

// Stats scans every table
func (s *Store) Stats() Stats {
	st := Stats{Tables: len(s.tables)}
	for _, t := range s.tables {
		st.Entries += len(t)
		for _, w := range t {
			if w == 0 {
				continue
			}
			st.NonZero++
			st.MaxAbs = math32.Max(st.MaxAbs, math32.Abs(w))
		}
	}
	return st
}

// String returns a one-line summary of the store
func (st Stats) String() string {
	return fmt.Sprintf("%d tables, %d/%d entries trained, max |w| %.4f",
		st.Tables, st.NonZero, st.Entries, st.MaxAbs)
}
