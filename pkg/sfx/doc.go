// ABOUTME: Fire-and-forget sound effect API
// ABOUTME: Wraps the audio server, sound library and output device into one context
// Package sfx is the entry point for playing sound effects and music.
//
// A System bundles the software mixer, an output backend, the sound library
// and the audio server. Audio is the logic-thread facade: every call is
// either a non-blocking command posted to the audio goroutine or a brief
// per-slot lock.
//
// Example:
//
//	sys, err := sfx.Open(sfx.Config{Backend: "oto"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close(context.Background())
//
//	blip, err := sys.Library.Load("blip", "blip.wav", false)
//	h := sys.Audio.PlaySound(blip, 0.8)
//	sys.Audio.FadeSoundOut(h, 500*time.Millisecond)
//
// Sounds are reference counted and always released on the logic loop; call
// System.Run (or Library.Pump from your own loop) so those releases happen.
package sfx
