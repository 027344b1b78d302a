package main

import (
	"encoding/json"
	"log"
	"math"
	"os"

	"github.com/joho/godotenv"
)

// Settings is the explicit configuration passed into the input and transport
// boundaries. No module-level mutable state: everything that used to be a
// global (sensitivity, volume) lives here.
type Settings struct {
	MouseSensitivity float64 `json:"mouse_sensitivity"`
	AudioVolume      float64 `json:"audio_volume"`
	FOV              float64 `json:"fov"` // degrees
	ScreenWidth      int     `json:"screen_width"`
	ScreenHeight     int     `json:"screen_height"`
	StaleTimeoutMs   int     `json:"stale_timeout_ms"`
	LostTimeoutMs    int     `json:"lost_timeout_ms"`
}

// DefaultSettings mirrors the shipped defaults
func DefaultSettings() *Settings {
	return &Settings{
		MouseSensitivity: 0.002,
		AudioVolume:      0.7,
		FOV:              60,
		ScreenWidth:      320,
		ScreenHeight:     200,
		StaleTimeoutMs:   2000,
		LostTimeoutMs:    5000,
	}
}

// FOVRadians returns the horizontal field of view in radians
func (s *Settings) FOVRadians() float64 {
	return s.FOV * math.Pi / 180
}

// LoadSettings reads settings from a JSON file, merging over the defaults so
// missing keys keep their default values. A missing or unreadable file is
// not an error; defaults are returned.
func LoadSettings(path string) *Settings {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: reading %s: %v (using defaults)", path, err)
		}
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		log.Printf("config: parsing %s: %v (using defaults)", path, err)
		return DefaultSettings()
	}
	s.sanitize()
	return s
}

// SaveSettings persists settings back to the JSON file
func SaveSettings(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Settings) sanitize() {
	s.MouseSensitivity = Clamp(s.MouseSensitivity, 0.0001, 0.1)
	s.AudioVolume = Clamp(s.AudioVolume, 0, 1)
	s.FOV = Clamp(s.FOV, 30, 120)
	if s.ScreenWidth < 8 {
		s.ScreenWidth = 320
	}
	if s.ScreenHeight < 8 {
		s.ScreenHeight = 200
	}
	if s.StaleTimeoutMs <= 0 {
		s.StaleTimeoutMs = 2000
	}
	if s.LostTimeoutMs <= 0 {
		s.LostTimeoutMs = 5000
	}
}

// LoadEnv loads a .env file if present and returns an env lookup with a
// fallback, used for flag defaults in main.
func LoadEnv() func(key, fallback string) string {
	if err := godotenv.Load(); err == nil {
		log.Println("config: loaded .env")
	}
	return func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
}
