package hir

import "testing"

func TestType_String(t *testing.T) {
	tests := []struct {
		ty   Type
		want string
	}{
		{Unit, "()"},
		{I32, "i32"},
		{Felt, "felt"},
		{Ptr(U8), "(ptr u8)"},
		{List(U8), "(list u8)"},
		{Array(Felt, 4), "[felt; 4]"},
		{Struct(I32, Ptr(Felt)), "(struct i32 (ptr felt))"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ty.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestType_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same scalar", I32, I32, true},
		{"different scalar", I32, U32, false},
		{"same ptr", Ptr(U8), Ptr(U8), true},
		{"different elem", Ptr(U8), Ptr(U16), false},
		{"array len", Array(U8, 2), Array(U8, 3), false},
		{"struct fields", Struct(I32, Felt), Struct(I32, Felt), true},
		{"struct arity", Struct(I32), Struct(I32, Felt), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestType_Layout(t *testing.T) {
	tests := []struct {
		ty          Type
		size, align uint32
	}{
		{U8, 1, 1},
		{U16, 2, 2},
		{I32, 4, 4},
		{I64, 8, 8},
		{Unit, 0, 1},
		{Array(U16, 3), 6, 2},
		{Struct(U8, I32), 8, 4},
		{Struct(I64, U8), 16, 8},
		{List(U8), 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.ty.String(), func(t *testing.T) {
			if got := tt.ty.SizeInBytes(); got != tt.size {
				t.Errorf("SizeInBytes() = %d, want %d", got, tt.size)
			}
			if got := tt.ty.Alignment(); got != tt.align {
				t.Errorf("Alignment() = %d, want %d", got, tt.align)
			}
		})
	}
}

func TestSignature_Equal(t *testing.T) {
	a := NewSignature([]Type{I32, Felt}, []Type{I32})
	b := NewSignature([]Type{I32, Felt}, []Type{I32})
	if !a.Equal(b) {
		t.Fatal("identical signatures differ")
	}
	b.CC = CallConvCrossCtx
	if a.Equal(b) {
		t.Error("calling convention ignored")
	}
	c := a.Clone()
	c.Params[0] = Sret(Ptr(U8))
	if !a.Params[0].Ty.Equal(I32) {
		t.Error("Clone shares parameter storage")
	}
	if got := c.String(); got != "(cc fast) (param (sret (ptr u8))) (param felt) (result i32)" {
		t.Errorf("String() = %q", got)
	}
}
