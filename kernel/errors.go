package kernel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dop251/goja"
)

// ErrInterrupted reports a run that was stopped before finishing, either
// by its context or by an explicit interrupt.
var ErrInterrupted = errors.New("execution interrupted")

// EvalError describes a failure raised by the interpreter: a thrown value,
// a syntax error, or an exhausted stack. Line and Column are 1-based and
// zero when the failure has no source position.
type EvalError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func (e *EvalError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// syntaxPos matches the position the compiler embeds in its messages.
var syntaxPos = regexp.MustCompile(`Line (\d+):(\d+)`)

// translateRunError maps an interpreter error onto the kernel's error
// types. Interrupts are checked before thrown values because the
// interrupt error carries a synthetic exception.
func translateRunError(err error) error {
	if err == nil {
		return nil
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v := interrupted.Value(); v != nil {
			return fmt.Errorf("%w: %v", ErrInterrupted, v)
		}
		return ErrInterrupted
	}
	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return &EvalError{Name: "RangeError", Message: "Maximum call stack size exceeded"}
	}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return syntaxError(syntax)
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return thrownError(ex.Value())
	}
	return err
}

func syntaxError(err *goja.CompilerSyntaxError) *EvalError {
	e := &EvalError{Name: "SyntaxError", Message: err.Message}
	if loc := syntaxPos.FindStringSubmatchIndex(err.Message); loc != nil {
		// Drop the compile-unit prefix so the message starts at the
		// position the user can act on.
		e.Message = err.Message[loc[0]:]
		e.Line, _ = strconv.Atoi(err.Message[loc[2]:loc[3]])
		e.Column, _ = strconv.Atoi(err.Message[loc[4]:loc[5]])
	}
	return e
}

// thrownError builds an EvalError from a thrown value. Error instances
// contribute name, message and stack; anything else is stringified.
func thrownError(v goja.Value) *EvalError {
	e := &EvalError{Name: "Error"}
	if v == nil {
		return e
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		e.Message = v.String()
		return e
	}
	found := false
	if name := safeGet(obj, "name"); name != nil && !goja.IsUndefined(name) {
		e.Name = name.String()
		found = true
	}
	if msg := safeGet(obj, "message"); msg != nil && !goja.IsUndefined(msg) {
		e.Message = msg.String()
		found = true
	}
	if stack := safeGet(obj, "stack"); stack != nil && !goja.IsUndefined(stack) {
		e.Stack = stack.String()
	}
	if !found {
		e.Message = v.String()
	}
	return e
}
