package config

import "time"

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

func NewRepositoryForTest(backend, projectID string) *Repository {
	return &Repository{backend: backend, projectID: projectID}
}

func NewChannelForTest(channelFile string, envFiles []string, envPrefix string) *Channel {
	return &Channel{channelFile: channelFile, envFiles: envFiles, envPrefix: envPrefix}
}

func NewDispatchForTest(remoteTimeout, commandTimeout time.Duration, editor string, autoComplete bool) *Dispatch {
	return &Dispatch{
		remoteTimeout:  remoteTimeout,
		commandTimeout: commandTimeout,
		editor:         editor,
		autoComplete:   autoComplete,
	}
}

func NewSentryForTest(dsn string) *Sentry {
	return &Sentry{dsn: dsn}
}
