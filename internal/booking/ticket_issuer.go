package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lithammer/shortuuid/v3"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// QRSigner produces and verifies the signed payload embedded in ticket
// QR codes. The payload is a compact HS256 token carrying the ticket
// code and its bindings, so gate scanners can verify tickets offline
// with nothing but the shared secret. Signing is deterministic: the
// same ticket always yields the same payload.
type QRSigner struct {
	secret []byte
}

// NewQRSigner constructs a QRSigner from the shared signing secret.
func NewQRSigner(secret string) *QRSigner { return &QRSigner{secret: []byte(secret)} }

// Sign builds the QR payload for a ticket. issuedAt is the booking's
// confirmation time, fixed per booking so re-signing yields identical
// output.
func (s *QRSigner) Sign(code string, bookingID, screeningID, seatID uint64, issuedAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"tkt": code,
		"bkg": bookingID,
		"scr": screeningID,
		"st":  seatID,
		"iat": issuedAt.UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses a QR payload and returns the embedded ticket code. It
// rejects payloads signed with a different secret or algorithm.
func (s *QRSigner) Verify(payload string) (string, error) {
	tok, err := jwt.Parse(payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid qr payload")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid qr claims")
	}
	code, ok := claims["tkt"].(string)
	if !ok || code == "" {
		return "", errors.New("qr payload missing ticket code")
	}
	return code, nil
}

// TicketIssuer mints one ticket per sold seat when a booking is
// confirmed. Issuance is guarded by the state machine's confirm
// idempotence, so it runs at most once per booking; within that run,
// ticket codes are collision-checked with a bounded retry before the
// unique index gets the final say.
type TicketIssuer struct {
	tickets    TicketStore
	signer     *QRSigner
	maxRetries int
	codePrefix string
}

// NewTicketIssuer constructs a TicketIssuer. maxRetries bounds both the
// per-code regeneration attempts and the batch reinsert attempts.
func NewTicketIssuer(tickets TicketStore, signer *QRSigner, maxRetries int) *TicketIssuer {
	if tickets == nil || signer == nil {
		panic("nil dependency passed to NewTicketIssuer")
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TicketIssuer{tickets: tickets, signer: signer, maxRetries: maxRetries, codePrefix: "TKT-"}
}

// Issue mints tickets for every seat bound to the booking and persists
// them as one batch. Each ticket gets a globally unique code and a
// deterministic signed QR payload. Returns ErrCodeGenerationExhausted
// when no collision-free code could be found within the retry budget.
func (i *TicketIssuer) Issue(ctx context.Context, b *model.Booking, seats []model.ScreeningSeat, issuedAt time.Time) ([]model.Ticket, error) {
	if len(seats) == 0 {
		return nil, ErrEmptySelection
	}
	for attempt := 0; attempt < i.maxRetries; attempt++ {
		tickets := make([]model.Ticket, 0, len(seats))
		for _, seat := range seats {
			code, err := i.newCode(ctx)
			if err != nil {
				return nil, err
			}
			payload, err := i.signer.Sign(code, b.ID, seat.ScreeningID, seat.SeatID, issuedAt)
			if err != nil {
				return nil, err
			}
			var price int64
			if seat.Price != nil {
				price = *seat.Price
			}
			tickets = append(tickets, model.Ticket{
				Code:            code,
				BookingID:       b.ID,
				ScreeningSeatID: seat.ID,
				SeatID:          seat.SeatID,
				Price:           price,
				QRPayload:       payload,
				Status:          model.TicketStatusActive,
				IssuedAt:        issuedAt.UTC(),
			})
		}
		err := i.tickets.CreateBatch(ctx, tickets)
		if err == nil {
			return tickets, nil
		}
		if !errors.Is(err, repository.ErrDuplicateTicketCode) {
			return nil, err
		}
		// Another issuer won a code between our pre-check and the
		// insert; regenerate the whole batch and try again.
	}
	return nil, ErrCodeGenerationExhausted
}

// newCode generates a candidate ticket code and pre-checks it against
// the store, retrying up to the configured budget.
func (i *TicketIssuer) newCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < i.maxRetries; attempt++ {
		code := i.codePrefix + strings.ToUpper(shortuuid.New())
		exists, err := i.tickets.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}
