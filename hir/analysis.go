package hir

// AnalysisManager caches per-function analysis results. A pass that
// rewrites a function must invalidate it so stale results are recomputed.
type AnalysisManager struct {
	cache       map[FunctionIdent]map[string]any
	invalidated map[FunctionIdent]int
}

// NewAnalysisManager returns an empty cache
func NewAnalysisManager() *AnalysisManager {
	return &AnalysisManager{
		cache:       make(map[FunctionIdent]map[string]any),
		invalidated: make(map[FunctionIdent]int),
	}
}

// Get returns the cached result of the named analysis for fn
func (am *AnalysisManager) Get(fn FunctionIdent, name string) (any, bool) {
	v, ok := am.cache[fn][name]
	return v, ok
}

// Put caches the result of the named analysis for fn
func (am *AnalysisManager) Put(fn FunctionIdent, name string, v any) {
	m := am.cache[fn]
	if m == nil {
		m = make(map[string]any)
		am.cache[fn] = m
	}
	m[name] = v
}

// GetOrCompute returns the cached result or computes and caches it
func (am *AnalysisManager) GetOrCompute(fn FunctionIdent, name string, compute func() any) any {
	if v, ok := am.Get(fn, name); ok {
		return v
	}
	v := compute()
	am.Put(fn, name, v)
	return v
}

// Invalidate drops every cached analysis of fn
func (am *AnalysisManager) Invalidate(fn FunctionIdent) {
	delete(am.cache, fn)
	am.invalidated[fn]++
}

// Invalidations returns how many times fn has been invalidated
func (am *AnalysisManager) Invalidations(fn FunctionIdent) int {
	return am.invalidated[fn]
}

// CalleesAnalysis is the name under which CachedCallees stores results
const CalleesAnalysis = "callees"

// CachedCallees returns fn's call targets through the analysis cache
func (am *AnalysisManager) CachedCallees(fn *Function) []FunctionIdent {
	return am.GetOrCompute(fn.ID, CalleesAnalysis, func() any {
		return fn.Callees()
	}).([]FunctionIdent)
}
