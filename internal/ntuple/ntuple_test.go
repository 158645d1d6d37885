package ntuple

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/threestd/threes/internal/board"
	"github.com/threestd/threes/internal/weights"
)

// smallFamilies keeps tables at 16^3 entries so tests stay cheap
func smallFamilies() []Family {
	return []Family{
		NewFamily(Pattern{0, 1, 2}),
		NewFamily(Pattern{4, 5, 6}),
	}
}

func newSmallNetwork(t *testing.T) *Network {
	t.Helper()
	fams := smallFamilies()
	n, err := New(weights.New(len(fams), fams[0].TableSize()), fams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func randomBoard(rng *rand.Rand) board.Board {
	var b board.Board
	for i := range b {
		b[i] = board.Cell(rng.Intn(int(board.MaxRank) + 1))
	}
	return b
}

func TestKey(t *testing.T) {
	var b board.Board
	for i := range b {
		b[i] = board.Cell(i + 1)
	}
	b[15] = 0

	if got := Key(Pattern{0, 1, 2, 3, 4, 5}, b); got != 0x123456 {
		t.Errorf("Key = %#x, want 0x123456", got)
	}
	if got := Key(Pattern{5, 4, 3, 2, 1, 0}, b); got != 0x654321 {
		t.Errorf("Key = %#x, want 0x654321", got)
	}
	if got := Key(Pattern{15, 14}, b); got != 0x0f {
		t.Errorf("Key = %#x, want 0x0f", got)
	}
}

func TestKeyDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := DefaultPatterns[2]
	for i := 0; i < 200; i++ {
		b := randomBoard(rng)
		k := Key(p, b)
		if Key(p, b) != k {
			t.Fatalf("Key not deterministic for\n%s", b)
		}

		// changing a cell inside the pattern changes the key
		named := b
		pos := p[rng.Intn(len(p))]
		named[pos] = (named[pos] + 1) % (board.MaxRank + 1)
		if Key(p, named) == k {
			t.Errorf("Key unchanged after editing cell %d", pos)
		}

		// cells outside the pattern do not matter
		other := b
		other[15] = (other[15] + 3) % (board.MaxRank + 1)
		if Key(p, other) != k {
			t.Errorf("Key changed after editing cell 15, which is not in the pattern")
		}
	}
}

func TestIsomorphisms(t *testing.T) {
	p := DefaultPatterns[0]
	iso := Isomorphisms(p)
	if len(iso) != Symmetries {
		t.Fatalf("got %d isomorphisms, want %d", len(iso), Symmetries)
	}
	for k := range p {
		if iso[0][k] != p[k] {
			t.Fatalf("first isomorphism = %v, want %v", iso[0], p)
		}
	}

	seen := map[[6]int]bool{}
	for _, img := range iso {
		var key [6]int
		copy(key[:], img)
		if seen[key] {
			t.Errorf("duplicate isomorphism %v", img)
		}
		seen[key] = true
		for _, pos := range img {
			if pos < 0 || pos >= board.Cells {
				t.Errorf("isomorphism %v leaves the board", img)
			}
		}
	}
}

func TestValueSymmetric(t *testing.T) {
	n := newSmallNetwork(t)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < n.Store().Len(); i++ {
		tab := n.Store().Table(i)
		for k := range tab {
			tab[k] = float32(rng.Intn(9) - 4)
		}
	}

	// relabel the board by every symmetry of the square; the value must not move
	identity := make(Pattern, board.Cells)
	for i := range identity {
		identity[i] = i
	}
	maps := Isomorphisms(identity)

	for trial := 0; trial < 50; trial++ {
		b := randomBoard(rng)
		want := n.Value(b)
		for s, m := range maps {
			var img board.Board
			for pos, to := range m {
				img[to] = b[pos]
			}
			if got := n.Value(img); got != want {
				t.Errorf("symmetry %d: Value = %f, want %f", s, got, want)
			}
		}
	}
}

func TestAdjustAliasing(t *testing.T) {
	n := newSmallNetwork(t)
	var empty board.Board

	// every instance of an empty board reads key 0 of its family's table
	n.Adjust(empty, 0.5)
	for i := 0; i < n.Store().Len(); i++ {
		if got := n.Store().Table(i)[0]; got != 4 {
			t.Errorf("table %d entry 0 = %f, want 4", i, got)
		}
	}
	if got, want := n.Value(empty), float32(2*8*4); got != want {
		t.Errorf("Value(empty) = %f, want %f", got, want)
	}
	if n.Instances() != 16 {
		t.Errorf("Instances() = %d, want 16", n.Instances())
	}
}

func TestNewValidates(t *testing.T) {
	fams := smallFamilies()
	if _, err := New(weights.New(1, fams[0].TableSize()), fams); err == nil {
		t.Error("expected error for too few tables")
	}
	if _, err := New(weights.New(2, 100), fams); err == nil {
		t.Error("expected error for wrong table size")
	}
	if _, err := New(weights.New(1, 16), []Family{{Canonical: Pattern{0}}}); err == nil {
		t.Error("expected error for family without instances")
	}
}

func TestRoundTrip(t *testing.T) {
	n := newSmallNetwork(t)
	rng := rand.New(rand.NewSource(11))
	boards := make([]board.Board, 20)
	for i := range boards {
		boards[i] = randomBoard(rng)
		n.Adjust(boards[i], rng.Float32()-0.5)
	}

	path := filepath.Join(t.TempDir(), "net.bin")
	if err := n.Store().Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store, err := weights.Load(path, smallFamilies()[0].TableSize())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded, err := New(store, smallFamilies())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 50; i++ {
		b := randomBoard(rng)
		if i < len(boards) {
			b = boards[i]
		}
		if got, want := loaded.Value(b), n.Value(b); got != want {
			t.Errorf("board %d: loaded Value = %f, want %f", i, got, want)
		}
	}
}

func TestDefaultNetworkStartsAtZero(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates the full 4x16^6 tables")
	}
	n, err := Default(NewDefaultStore())
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if n.Instances() != 32 {
		t.Errorf("Instances() = %d, want 32", n.Instances())
	}
	if n.Store().Size() != 16777216 {
		t.Errorf("table size = %d, want 16777216", n.Store().Size())
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		b := randomBoard(rng)
		if v := n.Value(b); v != 0 {
			t.Fatalf("Value = %f on fresh weights, want 0", v)
		}
	}
}
