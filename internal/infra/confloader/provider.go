package confloader

import "errors"

// mapProvider feeds an in-memory map to koanf. koanf calls Read for
// providers loaded without a parser.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider has no byte form")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
