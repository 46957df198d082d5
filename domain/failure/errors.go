package failure

import "errors"

var (
	// ErrEngineUnavailable is returned when the host audio engine cannot be created
	ErrEngineUnavailable = errors.New("audio engine unavailable")

	// ErrNoActivePreset is returned when an audio export is requested with the preset Off
	ErrNoActivePreset = errors.New("no active preset")

	// ErrExportBusy is returned when an export is started while another is in progress
	ErrExportBusy = errors.New("an export is already in progress")

	// ErrSourceNotReencodable is returned when a video export is requested for a source
	// that is not a local file
	ErrSourceNotReencodable = errors.New("source cannot be re-encoded")

	// ErrDecodeFailure is returned when captured audio cannot be decoded to PCM
	ErrDecodeFailure = errors.New("failed to decode captured audio")

	// ErrEngineLoadFailure is returned when the transcoding engine fails to load
	ErrEngineLoadFailure = errors.New("failed to load transcoding engine")

	// ErrTranscodeFailure is returned when the transcoding engine fails mid-job
	ErrTranscodeFailure = errors.New("transcoding failed")

	// ErrCaptureFailure is returned when the recording sink fails before end of media
	ErrCaptureFailure = errors.New("audio capture failed")

	// ErrCancelled is returned when an export is cancelled by the user
	ErrCancelled = errors.New("export cancelled")
)

var messages = []struct {
	err     error
	message string
}{
	{ErrEngineUnavailable, "Audio processing is not available on this system."},
	{ErrNoActivePreset, "Select a preset before exporting processed audio."},
	{ErrExportBusy, "An export is already running. Wait for it to finish or cancel it."},
	{ErrSourceNotReencodable, "Video export needs a local file. Open the video from disk and try again."},
	{ErrDecodeFailure, "The captured audio could not be converted to WAV."},
	{ErrEngineLoadFailure, "The video encoder could not be loaded. Check that FFmpeg is installed."},
	{ErrTranscodeFailure, "Video encoding failed. The source format may not be supported."},
	{ErrCaptureFailure, "Recording the processed audio failed. Try the export again."},
	{ErrCancelled, "Export cancelled."},
}

// Message returns the user-facing message for err.
// Errors outside the taxonomy get a generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return "Something went wrong: " + err.Error()
}

// Known reports whether err belongs to the export error taxonomy.
func Known(err error) bool {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}
