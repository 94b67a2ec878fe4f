// Copyright 2024 Antrea Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package steering

import (
	"errors"
	"fmt"

	"antrea.io/steering/pkg/steering/htbl"
	"antrea.io/steering/pkg/steering/ste"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupported       = errors.New("not supported")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrBusy              = errors.New("resource busy")
	ErrDeviceError       = errors.New("device error")

	// ErrNoValidRule is returned when a mask does not produce a single
	// builder. It is an ErrInvalidArgument.
	ErrNoValidRule = fmt.Errorf("%w: cannot generate any valid rules from mask", ErrInvalidArgument)
)

// builderError maps an error returned by a builder Context to the error kinds
// of this package.
func builderError(err error) error {
	if errors.Is(err, ste.ErrUnsupported) {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return err
}

func allocError(err error) error {
	if errors.Is(err, htbl.ErrExhausted) {
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}
	return err
}
