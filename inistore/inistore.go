// Package inistore updates ini-style key/value configuration files such as
// the mothulity settings file holding tool paths and defaults.
//
// A missing file is not an error: Set reports it through Result.Applied so
// callers can tell "nothing to update" from "updated".
package inistore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/ini.v1"

	"github.com/hazyhaar/mothulity"
	"github.com/hazyhaar/mothulity/guard"
	"github.com/hazyhaar/mothulity/render"
)

// Result describes what Set did.
type Result struct {
	// Applied is false when the file does not exist and nothing was written.
	Applied bool
	// Created is true when the section did not exist before (or was cleaned).
	Created bool
}

// Set writes options[i] = values[i] into section of the ini file at path.
// With clean, the section is dropped first so only the given options remain.
func Set(path, section string, options, values []string, clean bool) (Result, error) {
	if len(options) != len(values) {
		return Result{}, fmt.Errorf("inistore: %d options for %d values", len(options), len(values))
	}
	if err := guard.ValidateKey(section); err != nil {
		return Result{}, fmt.Errorf("inistore: section: %w", err)
	}
	for _, o := range options {
		if err := guard.ValidateKey(o); err != nil {
			return Result{}, fmt.Errorf("inistore: option: %w", err)
		}
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Applied: false}, nil
		}
		return Result{}, fmt.Errorf("%w: stat %s: %w", mothulity.ErrIO, path, err)
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return Result{}, fmt.Errorf("inistore: load %s: %w", path, err)
	}

	res := Result{Applied: true}
	if clean {
		cfg.DeleteSection(section)
	}
	if _, err := cfg.GetSection(section); err != nil {
		res.Created = true
	}
	sec, err := cfg.NewSection(section)
	if err != nil {
		return Result{}, fmt.Errorf("inistore: section %q: %w", section, err)
	}
	for i, o := range options {
		sec.Key(o).SetValue(values[i])
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return Result{}, fmt.Errorf("inistore: encode %s: %w", path, err)
	}
	if err := render.Persist(path, buf.String()); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Get returns the value of option in section. ok is false when the file,
// section or option does not exist.
func Get(path, section, option string) (value string, ok bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: stat %s: %w", mothulity.ErrIO, path, err)
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return "", false, fmt.Errorf("inistore: load %s: %w", path, err)
	}
	sec, err := cfg.GetSection(section)
	if err != nil || !sec.HasKey(option) {
		return "", false, nil
	}
	return sec.Key(option).String(), true, nil
}
