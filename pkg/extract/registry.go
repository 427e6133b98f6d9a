package extract

import (
	"fmt"
	"sort"
	"sync"
)

// サイト系統の識別子
const (
	FamilyInosmi      = "inosmi_ru"
	FamilyReadability = "readability"
	FamilyHeuristic   = "heuristic"

	// DefaultFamily は、設定がない場合に使うサイト系統です。
	DefaultFamily = FamilyInosmi
)

// Registry は、サイト系統の識別子から抽出関数への対応表です。
// パイプライン本体を変更せずに抽出関数を追加できます。
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry は、空の Registry を生成します。
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// DefaultRegistry は、組み込みのすべての抽出関数を登録した Registry を返します。
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FamilyInosmi, SanitizeInosmi)
	r.Register(FamilyReadability, ExtractReadable)
	r.Register(FamilyHeuristic, ExtractHeuristic)
	return r
}

// Register は、サイト系統に抽出関数を登録します。同じ識別子は上書きされます。
func (r *Registry) Register(family string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[family] = fn
}

// Get は、サイト系統に対応する抽出関数を返します。
func (r *Registry) Get(family string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	return fn, nil
}

// Families は、登録済みのサイト系統を名前順で返します。
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	families := make([]string, 0, len(r.funcs))
	for family := range r.funcs {
		families = append(families, family)
	}
	sort.Strings(families)
	return families
}
