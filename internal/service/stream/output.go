package stream

// Playback is one in-flight audio or speech output. Stop must be safe to
// call after the output has finished on its own.
type Playback interface {
	Stop()
}

// Output produces audible output from stream events. Implementations live in
// the surrounding UI layer; this package only decides which output may run.
type Output interface {
	// PlayAudio starts playing a decoded audio payload.
	PlayAudio(data []byte, format string) (Playback, error)

	// Speak synthesizes and plays an utterance with the local engine.
	Speak(text, voice string) (Playback, error)
}
