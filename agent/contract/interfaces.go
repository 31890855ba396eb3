package contract

import "context"

// Directory is the customer/card record collaborator. Reads return copies;
// LockCard is the single compare-and-set mutation the workflow depends on.
type Directory interface {
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCards(ctx context.Context, customerID string) ([]Card, error)
	SaveCustomer(ctx context.Context, customer *Customer) error

	// LockCard sets the fraud lock on the identified card. Locking an
	// already-locked card is a no-op; changed reports whether this call
	// performed the transition.
	LockCard(ctx context.Context, customerID, last4 string) (changed bool, err error)
}

// SpeechToText converts an audio payload to text.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcription, error)
}

// Telephony is the voice-AI platform that places and reports outbound calls.
type Telephony interface {
	CreateCall(ctx context.Context, req CreateCallRequest) (CallInfo, error)
	GetCallStatus(ctx context.Context, callID string) (CallInfo, error)
}
