//go:build espeak

package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
opencode_say(const char *text, const char *lang)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE voice = { 0 };
	voice.languages = lang;
	espeak_SetVoiceByProperties(&voice);

	espeak_ERROR rc = espeak_Synth(text, 0, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return rc == EE_OK ? 0 : -3;
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// Espeak speaks synchronously through libespeak-ng.
type Espeak struct {
	mu   sync.Mutex
	lang string
}

func NewEspeak(lang string) Speaker {
	if lang == "" {
		lang = "en"
	}
	return &Espeak{lang: lang}
}

func (e *Espeak) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(e.lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.opencode_say(ctext, clang); rc != 0 {
		return fmt.Errorf("espeak failed: %d", int(rc))
	}

	return nil
}
