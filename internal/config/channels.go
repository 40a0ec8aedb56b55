package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelDescriptor describes a single channel in the declarative channel
// catalog: its DASH manifest location, its decryption key, and optional
// per-channel representation selection overrides.
type ChannelDescriptor struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Key  string `yaml:"key"`
	// PreferredVideoIndex and PreferredAudioIndex override the gateway-wide
	// representation selection defaults for this channel. Zero means unset.
	PreferredVideoIndex int `yaml:"preferred_video_index"`
	PreferredAudioIndex int `yaml:"preferred_audio_index"`
}

// channelFile is the on-disk shape of the channels catalog.
type channelFile struct {
	Channels []ChannelDescriptor `yaml:"channels"`
}

// LoadChannels reads the declarative channel catalog from path.
func LoadChannels(path string) ([]ChannelDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channels file: %w", err)
	}

	var f channelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing channels file: %w", err)
	}

	for i, ch := range f.Channels {
		if ch.ID == "" {
			return nil, fmt.Errorf("channel at index %d is missing id", i)
		}
		if ch.URL == "" {
			return nil, fmt.Errorf("channel %q is missing url", ch.ID)
		}
	}

	return f.Channels, nil
}

// UserCredential is a single entry in the declarative user table.
type UserCredential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// userFile is the on-disk shape of the users table.
type userFile struct {
	Users []UserCredential `yaml:"users"`
}

// LoadUsers reads the declarative user/password table from path.
func LoadUsers(path string) ([]UserCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}

	var f userFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}

	for i, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("user at index %d is missing username", i)
		}
	}

	return f.Users, nil
}
