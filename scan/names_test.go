package scan

import (
	"reflect"
	"testing"
)

func TestDeclaredNamesBasic(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"var x = 1", []string{"x"}},
		{"let a = 1, b = 2", []string{"a", "b"}},
		{"const pi = 3.14", []string{"pi"}},
		{"x = 5", nil},
		{"console.log(1)", nil},
		{"", nil},
		{"function greet(name) { return name }", []string{"greet"}},
		{"async function go() {}", []string{"go"}},
		{"function* gen() { yield 1 }", []string{"gen"}},
		{"class Point {}", []string{"Point"}},
		{"class Dot extends Point {}", []string{"Dot"}},
		{"var x = 1; var x = 2", []string{"x"}},
		{"var zebra, apple", []string{"zebra", "apple"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DeclaredNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeclaredNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeclaredNamesDestructuring(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"const {x, b: a, ...rest} = o", []string{"x", "a", "rest"}},
		{"let [c] = list", []string{"c"}},
		{"const [p, , q = 3, ...tail] = arr", []string{"p", "q", "tail"}},
		{"const {a: {b}} = o", []string{"b"}},
		{"let [a, [b, c]] = arr", []string{"a", "b", "c"}},
		{"const {x = 1, y = 2} = o", []string{"x", "y"}},
		{"const {['k' + i]: computed} = o", []string{"computed"}},
		{"const {x, b: a, ...rest} = o, [c] = list", []string{"x", "a", "rest", "c"}},
		{"const x = 1; let { a, b: c, ...rest } = obj;", []string{"x", "a", "c", "rest"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DeclaredNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeclaredNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeclaredNamesSkipsNestedScopes(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"function outer() { let hidden = 1; var alsoHidden = 2 }", []string{"outer"}},
		{"class C { method() { let local = 1 } }", []string{"C"}},
		{"const f = function named() { var inner = 1 }", []string{"f"}},
		{"const f = (a, b) => a + b", []string{"f"}},
		{"const f = x => { let y = x; return y }", []string{"f"}},
		{"(function setup() { var tmp = 1 })()", nil},
		{"let cb = function() { const deep = 9 }", []string{"cb"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DeclaredNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeclaredNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeclaredNamesIgnoresLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`var s = "let fake = 1"`, []string{"s"}},
		{"// let ghost = 1\nlet real = 2", []string{"real"}},
		{"/* var a = 1 */ var b = 2", []string{"b"}},
		{"let t = `const c = ${d}`", []string{"t"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DeclaredNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeclaredNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeclaredNamesMultipleStatements(t *testing.T) {
	src := "let first = 1\nconst second = {a: 2}\nfunction third() {}\nclass Fourth {}"
	want := []string{"first", "second", "third", "Fourth"}
	got := DeclaredNames(src)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeclaredNames() = %v, want %v", got, want)
	}
}

func TestDeclaredNamesAfterStatement(t *testing.T) {
	got := DeclaredNames("console.log(1); let k = 5")
	if !reflect.DeepEqual(got, []string{"k"}) {
		t.Errorf("DeclaredNames() = %v, want [k]", got)
	}
}
