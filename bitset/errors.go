package bitset

import (
	pverrors "github.com/wippyai/pvdata/errors"
)

func truncatedWords(n int) error {
	return pverrors.New(pverrors.PhaseDecode, pverrors.KindTruncatedStream).
		Detail("bitset announces %d words beyond end of input", n).
		Build()
}
