package report

import (
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// digestQR renders a PNG QR code carrying "sha256:<hex>" for an image
// digest, so a printed report can be matched against the dump it came from.
// Characters other than hex digits are dropped.
func digestQR(digest string, px int) ([]byte, error) {
	hex := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
			return r
		case r >= 'A' && r <= 'F':
			return r + 'a' - 'A'
		}
		return -1
	}, digest)
	if hex == "" {
		return nil, errors.New("digest has no hex digits")
	}
	if px <= 0 {
		px = 128
	}
	code, err := qrcode.New("sha256:"+hex, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.PNG(px)
}
