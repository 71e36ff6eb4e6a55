package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/listenin/internal/config"
)

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a duration like 5s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be a URL like http://127.0.0.1:8787")
	}
	return nil
}

// parseOrigins splits a comma separated origin list, dropping empty entries.
func parseOrigins(s string) ([]string, error) {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if err := validateURL(o); err != nil {
			return nil, fmt.Errorf("invalid origin %q", o)
		}
		origins = append(origins, o)
	}
	return origins, nil
}

// editServer handles the HTTP proxy settings and the client endpoint
func editServer(cfg *config.Config) error {
	addr := cfg.Server.Addr
	origins := strings.Join(cfg.Server.AllowedOrigins, ", ")
	timeout := cfg.Server.RequestTimeout.String()
	endpoint := cfg.Client.Endpoint
	sendTimeout := cfg.Client.SendTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("Address `listenin serve` binds to").
				Placeholder("127.0.0.1:8787").
				Value(&addr).
				Validate(requireNonEmpty),
			huh.NewInput().
				Title("Allowed Origins").
				Description("Comma separated browser origins allowed to call the API").
				Value(&origins).
				Validate(func(s string) error {
					_, err := parseOrigins(s)
					return err
				}),
			huh.NewInput().
				Title("Request Timeout").
				Description("Upper bound for one backend call").
				Value(&timeout).
				Validate(validateDuration),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Client Endpoint").
				Description("Where the recorder reaches the API").
				Value(&endpoint).
				Validate(validateURL),
			huh.NewInput().
				Title("Frame Send Timeout").
				Description("Upper bound for transcribing one audio frame").
				Value(&sendTimeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Addr = strings.TrimSpace(addr)
	cfg.Server.AllowedOrigins, _ = parseOrigins(origins)
	cfg.Server.RequestTimeout, _ = time.ParseDuration(strings.TrimSpace(timeout))
	cfg.Client.Endpoint = strings.TrimSpace(endpoint)
	cfg.Client.SendTimeout, _ = time.ParseDuration(strings.TrimSpace(sendTimeout))
	return nil
}

// editRecording handles the capture settings
func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	frameSamples := strconv.Itoa(cfg.Recording.FrameSamples)
	device := cfg.Recording.Device
	channelBufferSize := strconv.Itoa(cfg.Recording.ChannelBufferSize)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("Audio sample rate. 16000 is optimal for speech recognition.").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Frame Size (samples)").
				Description("Samples per transcribed frame. 4096 is about a quarter second at 16kHz.").
				Placeholder("4096").
				Value(&frameSamples).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Device").
				Description("PipeWire target. Leave empty for the default source.").
				Value(&device),
			huh.NewInput().
				Title("Frame Queue Size").
				Description("Frames buffered between capture and transcription").
				Placeholder("8").
				Value(&channelBufferSize).
				Validate(validatePositiveInt),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(strings.TrimSpace(sampleRate))
	cfg.Recording.FrameSamples, _ = strconv.Atoi(strings.TrimSpace(frameSamples))
	cfg.Recording.Device = strings.TrimSpace(device)
	cfg.Recording.ChannelBufferSize, _ = strconv.Atoi(strings.TrimSpace(channelBufferSize))
	return nil
}

// editStorage handles where meetings are kept and how many
func editStorage(cfg *config.Config) error {
	path := cfg.Storage.Path
	maxRecords := strconv.Itoa(cfg.Storage.MaxRecords)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Database Path").
				Description("SQLite file holding saved meetings").
				Value(&path).
				Validate(requireNonEmpty),
			huh.NewInput().
				Title("Maximum Meetings").
				Description("Oldest meetings are dropped beyond this count").
				Placeholder("50").
				Value(&maxRecords).
				Validate(validatePositiveInt),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Storage.Path = strings.TrimSpace(path)
	cfg.Storage.MaxRecords, _ = strconv.Atoi(strings.TrimSpace(maxRecords))
	return nil
}
