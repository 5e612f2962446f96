package hir

import (
	"bytes"
	"testing"
)

func TestGlobalVariableTable(t *testing.T) {
	gt := NewGlobalVariableTable()
	off, err := gt.Declare("flag", U8, []byte{1})
	if err != nil || off != 0 {
		t.Fatalf("Declare flag: %d, %v", off, err)
	}
	off, err = gt.Declare(StackPointerGlobal, I32, []byte{0, 0, 1, 0})
	if err != nil || off != 4 {
		t.Fatalf("Declare sp: %d, %v", off, err)
	}
	if _, err := gt.Declare("flag", U8, nil); err == nil {
		t.Error("duplicate global accepted")
	}
	if _, err := gt.Declare("big", U8, []byte{1, 2}); err == nil {
		t.Error("oversized initializer accepted")
	}
	if gt.SizeInBytes() != 8 {
		t.Errorf("SizeInBytes() = %d", gt.SizeInBytes())
	}
	if want := []byte{1, 0, 0, 0, 0, 0, 1, 0}; !bytes.Equal(gt.Image(), want) {
		t.Errorf("Image() = %v", gt.Image())
	}
	gv, ok := gt.Find(StackPointerGlobal)
	if !ok || gv.Offset != 4 {
		t.Errorf("Find = %+v, %v", gv, ok)
	}
}

func TestDataSegmentTable(t *testing.T) {
	st := NewDataSegmentTable()
	if err := st.Declare(32, 0, []byte("hello"), true); err != nil {
		t.Fatal(err)
	}
	if err := st.Declare(0, 16, nil, false); err != nil {
		t.Fatal(err)
	}
	if err := st.Declare(34, 4, nil, false); err == nil {
		t.Error("overlapping segment accepted")
	}
	if err := st.Declare(64, 2, []byte{1, 2, 3}, false); err == nil {
		t.Error("initializer larger than size accepted")
	}

	segs := st.Segments()
	if len(segs) != 2 || segs[0].Offset != 0 || segs[1].Offset != 32 {
		t.Fatalf("segments not sorted: %+v", segs)
	}
	if !segs[0].IsZeroed() || segs[1].IsZeroed() {
		t.Error("IsZeroed mismatch")
	}
	if got := st.NextAvailableOffset(); got != 48 {
		t.Errorf("NextAvailableOffset() = %d", got)
	}
	if got := ComputeGlobalLayout(st).GlobalTableOffset; got != 48 {
		t.Errorf("GlobalTableOffset = %d", got)
	}
}

func TestNewProgram(t *testing.T) {
	p := NewProgram()
	if p.PageSize != DefaultPageSize || p.ReservedMemoryBytes != 2*DefaultPageSize {
		t.Errorf("unexpected defaults %+v", p)
	}
}
