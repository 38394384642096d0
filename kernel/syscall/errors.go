package syscall

import "nucleus/kernel"

var (
	// ErrBufferTooSmall is returned when a caller asks to copy more bytes
	// than a Buffer was constructed with.
	ErrBufferTooSmall = &kernel.Error{Module: "syscall", Message: "copy length exceeds buffer length"}

	// ErrStringTooLong is returned by NewCString when the string's
	// declared length exceeds MaxStringLen.
	ErrStringTooLong = &kernel.Error{Module: "syscall", Message: "user string exceeds the maximum fetch length"}

	// ErrStringNotUTF8 is returned by CString.Fetch when the fetched bytes
	// are not valid UTF-8.
	ErrStringNotUTF8 = &kernel.Error{Module: "syscall", Message: "user string is not valid utf-8"}
)
