package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTimeline() error {
	t := c.Timeline
	if t.FPS <= 0 {
		return errors.New("timeline.fps must be positive")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return errors.New("timeline.width and timeline.height must be positive")
	}
	if t.TitleBlockFrames <= 0 || t.SummaryBlockFrames <= 0 || t.BaseSectionFrames <= 0 {
		return errors.New("timeline block frames must be positive")
	}
	if t.TransitionFrames < 0 || t.AudioBufferFrames < 0 {
		return errors.New("timeline.transition_frames and timeline.audio_buffer_frames must not be negative")
	}
	if t.TransitionFrames >= t.TitleBlockFrames || t.TransitionFrames >= t.SummaryBlockFrames {
		return errors.New("timeline.transition_frames must be shorter than the title and summary blocks")
	}
	if t.VisualMultiplier < 1 {
		return errors.New("timeline.visual_multiplier must be at least 1")
	}
	switch t.Transition {
	case "alternate", "fade", "slide":
	default:
		return fmt.Errorf("timeline.transition: unsupported value %q", t.Transition)
	}
	return nil
}

func (c *Config) validateEngines() error {
	if c.Engines.LoadTimeoutSeconds <= 0 {
		return errors.New("engines.load_timeout_seconds must be positive")
	}
	if c.Engines.RenderTimeoutSeconds <= 0 {
		return errors.New("engines.render_timeout_seconds must be positive")
	}
	if c.Engines.Workers < 0 {
		return errors.New("engines.workers must not be negative")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.ProbeTimeoutMs <= 0 {
		return errors.New("audio.probe_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
