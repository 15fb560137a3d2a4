//go:build whisper

package engine

// cgo link directives for the in-process whisper adapter.
// - rpath of $ORIGIN so the runtime loader finds libwhisper.so next to
//   the built binary (./bin).
// - -L${SRCDIR}/../../bin so the linker finds libwhisper.so at link
//   time when building the 'whisper' variant.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lwhisper
*/
import "C"
