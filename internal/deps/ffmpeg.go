package deps

import "strings"

const defaultFFmpeg = "ffmpeg"

// CheckFFmpeg reports the ffmpeg binary used to grab video thumbnail frames.
// Without it video slots simply have no thumbnail, so it is optional.
func CheckFFmpeg(configured string) Status {
	command := strings.TrimSpace(configured)
	if command == "" {
		command = defaultFFmpeg
	}
	status := Status{
		Name:        "FFmpeg",
		Command:     command,
		Description: "Extracts video thumbnail frames",
		Optional:    true,
	}
	resolved, err := resolve(command)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
