// FILE: lixenwraith/chessassist/internal/position/fen.go
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedEncoding is returned when FEN text cannot be decoded.
var ErrMalformedEncoding = errors.New("malformed encoding")

const (
	DefaultCastling  = "KQkq"
	DefaultEnPassant = "-"
)

// Fields holds the trailing FEN fields. Zero values stand for the defaults
// "w KQkq - 0 1"; the codec never derives them from board contents.
type Fields struct {
	ActiveColor Color  `json:"activeColor"`
	Castling    string `json:"castling"`
	EnPassant   string `json:"enPassant"`
	HalfMove    int    `json:"halfMove"`
	FullMove    int    `json:"fullMove"`
}

// DefaultFields returns white to move, full castling rights, no en-passant
// target, clocks 0 and 1.
func DefaultFields() Fields {
	return Fields{
		ActiveColor: White,
		Castling:    DefaultCastling,
		EnPassant:   DefaultEnPassant,
		HalfMove:    0,
		FullMove:    1,
	}
}

// WithDefaults fills unset fields.
func (f Fields) WithDefaults() Fields {
	if f.ActiveColor != White && f.ActiveColor != Black {
		f.ActiveColor = White
	}
	if f.Castling == "" {
		f.Castling = DefaultCastling
	}
	if f.EnPassant == "" {
		f.EnPassant = DefaultEnPassant
	}
	if f.HalfMove < 0 {
		f.HalfMove = 0
	}
	if f.FullMove < 1 {
		f.FullMove = 1
	}
	return f
}

func (f Fields) String() string {
	f = f.WithDefaults()
	return fmt.Sprintf("%s %s %s %d %d", f.ActiveColor, f.Castling, f.EnPassant, f.HalfMove, f.FullMove)
}

// Decode reads the piece-placement field of text into a board. Trailing
// fields, if present, are ignored.
func Decode(text string) (Board, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Board{}, fmt.Errorf("%w: empty text", ErrMalformedEncoding)
	}
	return decodePlacement(parts[0])
}

// DecodeFull reads the extended six-field text. Missing trailing fields take
// their defaults; present ones are validated.
func DecodeFull(text string) (Board, Fields, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Board{}, Fields{}, fmt.Errorf("%w: empty text", ErrMalformedEncoding)
	}
	if len(parts) > 6 {
		return Board{}, Fields{}, fmt.Errorf("%w: expected at most 6 fields, got %d", ErrMalformedEncoding, len(parts))
	}

	b, err := decodePlacement(parts[0])
	if err != nil {
		return Board{}, Fields{}, err
	}

	f := DefaultFields()
	if len(parts) > 1 {
		c, ok := ParseColor(parts[1])
		if !ok || len(parts[1]) != 1 {
			return Board{}, Fields{}, fmt.Errorf("%w: side to move must be 'w' or 'b', got %q", ErrMalformedEncoding, parts[1])
		}
		f.ActiveColor = c
	}
	if len(parts) > 2 {
		if !validCastling(parts[2]) {
			return Board{}, Fields{}, fmt.Errorf("%w: castling rights %q", ErrMalformedEncoding, parts[2])
		}
		f.Castling = parts[2]
	}
	if len(parts) > 3 {
		if !validEnPassant(parts[3]) {
			return Board{}, Fields{}, fmt.Errorf("%w: en-passant target %q", ErrMalformedEncoding, parts[3])
		}
		f.EnPassant = strings.ToLower(parts[3])
	}
	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return Board{}, Fields{}, fmt.Errorf("%w: half-move clock %q", ErrMalformedEncoding, parts[4])
		}
		f.HalfMove = n
	}
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return Board{}, Fields{}, fmt.Errorf("%w: full-move number %q", ErrMalformedEncoding, parts[5])
		}
		f.FullMove = n
	}

	return b, f, nil
}

func decodePlacement(placement string) (Board, error) {
	var b Board

	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("%w: expected 8 ranks, got %d", ErrMalformedEncoding, len(ranks))
	}

	for r, rank := range ranks {
		file := 0
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			if ch >= '0' && ch <= '9' {
				if ch == '0' || ch == '9' {
					return Board{}, fmt.Errorf("%w: empty run %q in rank %d", ErrMalformedEncoding, ch, 8-r)
				}
				file += int(ch - '0')
				if file > 8 {
					return Board{}, fmt.Errorf("%w: rank %d overflows 8 files", ErrMalformedEncoding, 8-r)
				}
				continue
			}

			p, ok := ParsePiece(ch)
			if !ok {
				return Board{}, fmt.Errorf("%w: unknown piece %q in rank %d", ErrMalformedEncoding, ch, 8-r)
			}
			if file >= 8 {
				return Board{}, fmt.Errorf("%w: rank %d overflows 8 files", ErrMalformedEncoding, 8-r)
			}
			b[r][file] = p
			file++
		}
		if file != 8 {
			return Board{}, fmt.Errorf("%w: rank %d has %d files", ErrMalformedEncoding, 8-r, file)
		}
	}

	return b, nil
}

// EncodePlacement returns the piece-placement field for b.
func EncodePlacement(b Board) string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			p := b[r][c]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(byte(p))
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// Encode returns the full six-field text for b. Unset fields in f take
// their defaults.
func Encode(b Board, f Fields) string {
	return EncodePlacement(b) + " " + f.String()
}

func validCastling(s string) bool {
	if s == "-" {
		return true
	}
	if len(s) == 0 || len(s) > 4 {
		return false
	}
	seen := make(map[rune]bool, 4)
	for _, ch := range s {
		if !strings.ContainsRune(DefaultCastling, ch) || seen[ch] {
			return false
		}
		seen[ch] = true
	}
	return true
}

func validEnPassant(s string) bool {
	if s == "-" {
		return true
	}
	sq, ok := ToCoords(s)
	if !ok {
		return false
	}
	// Only ranks 3 and 6 can hold a target square.
	return sq.Row == 5 || sq.Row == 2
}
