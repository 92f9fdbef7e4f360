package main

import (
	"errors"

	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/sheetfile"
	"github.com/kwatuha/imes-sub010/modules/projects/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// classify maps service and decoder errors onto exit codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	var importErr *services.ImportError
	switch {
	case errors.As(err, &importErr):
		if len(importErr.Errors) == 0 {
			return withCode(exitDBWrite, err)
		}
		return withCode(exitValidation, err)
	case errors.Is(err, services.ErrNoDataRows),
		errors.Is(err, services.ErrNoRowsProvided),
		errors.Is(err, sheetfile.ErrUnsupportedFormat),
		errors.Is(err, sheetfile.ErrNoSheets),
		errors.Is(err, sheetfile.ErrNoHeader):
		return withCode(exitValidation, err)
	case errors.Is(err, services.ErrActorRequired):
		return withCode(exitUsage, err)
	}
	return withCode(exitDB, err)
}
