// File: internal/usecase/tts_uc.go
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain/ports/adapter"
)

// voiceCommands maps the short voice commands to synthesis parameters. The
// scheme is v + language tag + gender suffix (m/f).
var voiceCommands = map[string]adapter.VoiceParams{
	"venm":  {LanguageCode: "en-US", VoiceName: "en-US-Neural2-I"},
	"venf":  {LanguageCode: "en-US", VoiceName: "en-US-Neural2-F"},
	"vcnm":  {LanguageCode: "cmn-CN", VoiceName: "cmn-CN-Wavenet-B"},
	"vcnf":  {LanguageCode: "cmn-CN", VoiceName: "cmn-CN-Wavenet-A"},
	"vhkm":  {LanguageCode: "yue-Hant-HK", VoiceName: "yue-HK-Standard-B"},
	"vhkf":  {LanguageCode: "yue-Hant-HK", VoiceName: "yue-HK-Standard-A"},
	"vesm":  {LanguageCode: "es-ES", VoiceName: "es-ES-Neural2-B"},
	"vesf":  {LanguageCode: "es-ES", VoiceName: "es-ES-Neural2-A"},
	"vptm":  {LanguageCode: "pt-PT", VoiceName: "pt-PT-Wavenet-C"},
	"vptf":  {LanguageCode: "pt-PT", VoiceName: "pt-PT-Wavenet-A"},
	"vnlm":  {LanguageCode: "nl-NL", VoiceName: "nl-NL-Wavenet-C", SSMLGender: "MALE"},
	"vnlf":  {LanguageCode: "nl-NL", VoiceName: "nl-NL-Wavenet-D", SSMLGender: "FEMALE"},
	"vfrm":  {LanguageCode: "fr-FR", VoiceName: "fr-FR-Wavenet-D", SSMLGender: "MALE"},
	"vfrf":  {LanguageCode: "fr-FR", VoiceName: "fr-FR-Wavenet-C", SSMLGender: "FEMALE"},
	"vdem":  {LanguageCode: "de-DE", VoiceName: "de-DE-Wavenet-B", SSMLGender: "MALE"},
	"vdef":  {LanguageCode: "de-DE", VoiceName: "de-DE-Wavenet-F", SSMLGender: "FEMALE"},
	"vitm":  {LanguageCode: "it-IT", VoiceName: "it-IT-Wavenet-C", SSMLGender: "MALE"},
	"vitf":  {LanguageCode: "it-IT", VoiceName: "it-IT-Wavenet-A", SSMLGender: "FEMALE"},
	"vjam":  {LanguageCode: "ja-JP", VoiceName: "ja-JP-Wavenet-C", SSMLGender: "MALE"},
	"vjaf":  {LanguageCode: "ja-JP", VoiceName: "ja-JP-Wavenet-B", SSMLGender: "FEMALE"},
	"vkom":  {LanguageCode: "ko-KR", VoiceName: "ko-KR-Wavenet-C", SSMLGender: "MALE"},
	"vkof":  {LanguageCode: "ko-KR", VoiceName: "ko-KR-Wavenet-A", SSMLGender: "FEMALE"},
	"vhim":  {LanguageCode: "hi-IN", VoiceName: "hi-IN-Wavenet-B", SSMLGender: "MALE"},
	"vhif":  {LanguageCode: "hi-IN", VoiceName: "hi-IN-Wavenet-D", SSMLGender: "FEMALE"},
	"vrum":  {LanguageCode: "ru-RU", VoiceName: "ru-RU-Wavenet-B", SSMLGender: "MALE"},
	"vruf":  {LanguageCode: "ru-RU", VoiceName: "ru-RU-Wavenet-E", SSMLGender: "FEMALE"},
	"vtrm":  {LanguageCode: "tr-TR", VoiceName: "tr-TR-Wavenet-B", SSMLGender: "MALE"},
	"vtrf":  {LanguageCode: "tr-TR", VoiceName: "tr-TR-Wavenet-C", SSMLGender: "FEMALE"},
	"vukf":  {LanguageCode: "uk-UA", VoiceName: "uk-UA-Wavenet-A", SSMLGender: "FEMALE"},
	"vvim":  {LanguageCode: "vi-VN", VoiceName: "vi-VN-Wavenet-B", SSMLGender: "MALE"},
	"vvif":  {LanguageCode: "vi-VN", VoiceName: "vi-VN-Wavenet-A", SSMLGender: "FEMALE"},
	"vyuem": {LanguageCode: "yue-HK", VoiceName: "yue-HK-Standard-B", SSMLGender: "MALE"},
	"vyuef": {LanguageCode: "yue-HK", VoiceName: "yue-HK-Standard-A", SSMLGender: "FEMALE"},
}

// VoiceCommand looks up synthesis parameters for a command like "venm".
func VoiceCommand(command string) (adapter.VoiceParams, bool) {
	p, ok := voiceCommands[command]
	return p, ok
}

// IsVoiceCommand reports whether command is a known voice command.
func IsVoiceCommand(command string) bool {
	_, ok := voiceCommands[command]
	return ok
}

// TTSUseCase synthesizes the replied-to message as spoken audio.
type TTSUseCase struct {
	synth     adapter.Synthesizer
	messenger adapter.Messenger
	log       *zerolog.Logger
}

func NewTTSUseCase(synth adapter.Synthesizer, messenger adapter.Messenger, logger *zerolog.Logger) *TTSUseCase {
	return &TTSUseCase{synth: synth, messenger: messenger, log: logger}
}

// OnSpeak synthesizes text with the voice bound to command and sends it back
// as an audio message.
func (u *TTSUseCase) OnSpeak(ctx context.Context, caller Caller, command, text string) error {
	params, ok := VoiceCommand(command)
	if !ok {
		_, err := u.messenger.Reply(ctx, caller.ChatID, fmt.Sprintf("Unknown voice command /%s", command), &adapter.SendOptions{ThreadID: caller.ThreadID})
		return err
	}
	if text == "" {
		_, err := u.messenger.Reply(ctx, caller.ChatID, "Reply to a message with this command to voice it", &adapter.SendOptions{ThreadID: caller.ThreadID})
		return err
	}
	audio, err := u.synth.Synthesize(ctx, text, params)
	if err != nil {
		u.log.Error().Err(err).Str("voice", params.VoiceName).Msg("synthesis failed")
		return err
	}
	return u.messenger.SendAudio(ctx, caller.ChatID, audio, params.VoiceName+".ogg")
}
