// Package flags renders bitmasks as human-readable symbolic strings.
//
// A Table is an ordered list of (mask, label) pairs. Format walks the table
// in order, emits the label of every entry whose mask bits are all present in
// the value, and clears those bits so no bit is attributed twice. Whatever is
// left is appended as one hexadecimal residual term:
//
//	flags.Format(0x105, flags.Table{
//	    {flags.Bit(0), "skip"},
//	    {flags.Bit(2), "wait_for_idle"},
//	})
//	// "skip|wait_for_idle|0x100"
//
// A value with nothing to print renders as "None".
package flags
