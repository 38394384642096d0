package syscall

import (
	"testing"

	"nucleus/kernel"
)

func TestDispatchUnknownNumberReturnsENoSys(t *testing.T) {
	if got := Dispatch(0xFFFF, Args{}); got != -int64(ErrnoNoSys) {
		t.Fatalf("expected -ENOSYS; got %d", got)
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	const number = 0x5000
	Register(number, func(args Args) (uint64, *kernel.Error) {
		return args[0] + args[1], nil
	})

	if got := Dispatch(number, Args{2, 3}); got != 5 {
		t.Fatalf("expected 5; got %d", got)
	}
}

func TestDispatchNegatesErrnoOnFailure(t *testing.T) {
	const number = 0x5001
	boom := &kernel.Error{Module: "test", Message: "boom"}
	Register(number, func(args Args) (uint64, *kernel.Error) {
		return 0, boom
	})

	if got := Dispatch(number, Args{}); got != -int64(errnoFor(boom)) {
		t.Fatalf("expected negated errno; got %d", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	const number = 0x5002
	Register(number, func(args Args) (uint64, *kernel.Error) { return 0, nil })

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected duplicate Register to panic")
		}
	}()
	Register(number, func(args Args) (uint64, *kernel.Error) { return 0, nil })
}
