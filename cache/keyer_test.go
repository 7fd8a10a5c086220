package cache

import (
	"errors"
	"math"
	"regexp"
	"testing"
)

var keyPattern = regexp.MustCompile(`^memo:report:[0-9a-f]{16}$`)

func mustKey(t *testing.T, args []any, kwargs map[string]any) string {
	t.Helper()
	key, err := NewDefaultKeyer().Key("memo", "report", args, kwargs)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	return key
}

func TestKeyer_KeyFormat(t *testing.T) {
	key := mustKey(t, []any{1, "a"}, map[string]any{"x": true})
	if !keyPattern.MatchString(key) {
		t.Errorf("Key() = %q, want match for %s", key, keyPattern)
	}
}

func TestKeyer_KwargsOrderIndependent(t *testing.T) {
	k1 := mustKey(t, nil, map[string]any{"b": 2, "a": 1, "c": 3})
	k2 := mustKey(t, nil, map[string]any{"a": 1, "c": 3, "b": 2})
	k3 := mustKey(t, nil, map[string]any{"c": 3, "b": 2, "a": 1})

	if k1 != k2 || k2 != k3 {
		t.Errorf("keys differ for the same kwargs: %s %s %s", k1, k2, k3)
	}
}

func TestKeyer_NestedMapsOrderIndependent(t *testing.T) {
	k1 := mustKey(t, []any{map[string]any{"z": 1, "y": map[string]any{"q": 1, "p": 2}}}, nil)
	k2 := mustKey(t, []any{map[string]any{"y": map[string]any{"p": 2, "q": 1}, "z": 1}}, nil)
	if k1 != k2 {
		t.Errorf("keys differ for the same nested map: %s %s", k1, k2)
	}
}

func TestKeyer_PositionalOrderPreserved(t *testing.T) {
	k1 := mustKey(t, []any{1, 2, 3}, nil)
	k2 := mustKey(t, []any{3, 2, 1}, nil)
	if k1 == k2 {
		t.Errorf("keys equal for different positional order: %s", k1)
	}
}

func TestKeyer_ArgsAndKwargsDistinct(t *testing.T) {
	k1 := mustKey(t, []any{"x"}, nil)
	k2 := mustKey(t, nil, map[string]any{"0": "x"})
	if k1 == k2 {
		t.Errorf("positional and named arguments collide: %s", k1)
	}
}

func TestKeyer_IdentityAndNamespace(t *testing.T) {
	keyer := NewDefaultKeyer()
	args := []any{42}

	a, _ := keyer.Key("memo", "report", args, nil)
	b, _ := keyer.Key("memo", "invoice", args, nil)
	c, _ := keyer.Key("other", "report", args, nil)

	if a == b || a == c {
		t.Errorf("keys collide across identity/namespace: %s %s %s", a, b, c)
	}
}

func TestKeyer_EmptyAndNil(t *testing.T) {
	if mustKey(t, nil, nil) != mustKey(t, []any{}, map[string]any{}) {
		t.Error("nil and empty arguments should produce the same key")
	}
	if mustKey(t, nil, nil) == mustKey(t, []any{nil}, nil) {
		t.Error("a nil positional argument should change the key")
	}
}

type point struct {
	X, Y int
}

func TestKeyer_StructuralFallback(t *testing.T) {
	// JSON cannot encode struct map keys or NaN.
	structKeyed := map[point]string{{1, 2}: "a", {3, 4}: "b"}
	k1 := mustKey(t, []any{structKeyed}, nil)
	k2 := mustKey(t, []any{map[point]string{{3, 4}: "b", {1, 2}: "a"}}, nil)
	if k1 != k2 {
		t.Errorf("structural fallback not deterministic: %s %s", k1, k2)
	}

	if mustKey(t, []any{complex(1, 2)}, nil) == mustKey(t, []any{complex(2, 1)}, nil) {
		t.Error("distinct complex values share a key")
	}
	if !keyPattern.MatchString(mustKey(t, []any{math.NaN()}, nil)) {
		t.Error("NaN argument not keyed")
	}
}

type query struct {
	limit int
}

type page struct {
	query
	Offset int
}

type otherPoint struct {
	X, Y int
}

func TestKeyer_UnexportedFields(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"unexported field", query{limit: 1}, query{limit: 2}},
		{"pointer to struct", &query{limit: 1}, &query{limit: 2}},
		{"errors", errors.New("x"), errors.New("y")},
		{"embedded unexported struct", page{query{1}, 0}, page{query{2}, 0}},
		{"inside exported field", struct{ Q any }{query{1}}, struct{ Q any }{query{2}}},
		{"inside slice", []query{{1}}, []query{{2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustKey(t, []any{tt.a}, nil)
			b := mustKey(t, []any{tt.b}, nil)
			if a == b {
				t.Errorf("%#v and %#v share key %s", tt.a, tt.b, a)
			}
			if a != mustKey(t, []any{tt.a}, nil) {
				t.Errorf("key for %#v not deterministic", tt.a)
			}
		})
	}
}

func TestKeyer_StructTypeInKey(t *testing.T) {
	if mustKey(t, []any{point{1, 2}}, nil) == mustKey(t, []any{otherPoint{1, 2}}, nil) {
		t.Error("structs of different types with equal fields share a key")
	}
	if mustKey(t, []any{struct{}{}}, nil) == mustKey(t, []any{query{}}, nil) {
		t.Error("empty structs of different types share a key")
	}
	if mustKey(t, []any{point{1, 2}}, nil) != mustKey(t, []any{point{1, 2}}, nil) {
		t.Error("equal structs produce different keys")
	}
}

func TestKeyer_Unkeyable(t *testing.T) {
	ch := make(chan int)
	n := 1
	pn := &n

	tests := []struct {
		name string
		args []any
	}{
		{"func", []any{func() {}}},
		{"chan", []any{ch}},
		{"func in map", []any{map[point]any{{1, 1}: func() {}}}},
		{"nested pointer", []any{map[point]**int{{1, 1}: &pn}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefaultKeyer().Key("memo", "report", tt.args, nil)
			if !errors.Is(err, ErrUnkeyable) {
				t.Errorf("Key() error = %v, want %v", err, ErrUnkeyable)
			}
		})
	}
}

func TestDigest(t *testing.T) {
	d := Digest([]byte("hello"))
	if len(d) != 16 {
		t.Errorf("len(Digest()) = %d, want 16", len(d))
	}
	if d != Digest([]byte("hello")) {
		t.Error("Digest() not deterministic")
	}
	if d == Digest([]byte("hello!")) {
		t.Error("Digest() collides for different input")
	}
}
