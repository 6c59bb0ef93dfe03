package domain

import "fmt"

// Sentiment is the optional polarity of an attestation. The zero value means
// the witness did not state one.
type Sentiment string

const (
	SentimentUnspecified Sentiment = ""
	SentimentPositive    Sentiment = "positive"
	SentimentNegative    Sentiment = "negative"
	SentimentNeutral     Sentiment = "neutral"
)

// ParseSentiment returns ErrInvalidSentiment for anything outside the declared set.
// The empty string parses to SentimentUnspecified.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(s) {
	case SentimentUnspecified, SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s), nil
	}
	return "", fmt.Errorf("%w: %q (want positive, negative or neutral)", ErrInvalidSentiment, s)
}

// ClaimCategory classifies what kind of claim an attestation makes. The zero
// value means unknown.
type ClaimCategory string

const (
	CategoryUnknown    ClaimCategory = ""
	CategoryFactual    ClaimCategory = "factual"
	CategorySubjective ClaimCategory = "subjective"
	CategoryPredictive ClaimCategory = "predictive"
)

// CategoryUnknownLabel is the summary bucket for attestations without a category.
const CategoryUnknownLabel = "unknown"

// ParseClaimCategory returns ErrInvalidClaimCategory for anything outside the declared set.
func ParseClaimCategory(s string) (ClaimCategory, error) {
	switch ClaimCategory(s) {
	case CategoryUnknown, CategoryFactual, CategorySubjective, CategoryPredictive:
		return ClaimCategory(s), nil
	}
	return "", fmt.Errorf("%w: %q (want factual, subjective or predictive)", ErrInvalidClaimCategory, s)
}

// Label returns the summary bucket name for the category
func (c ClaimCategory) Label() string {
	if c == CategoryUnknown {
		return CategoryUnknownLabel
	}
	return string(c)
}

// ParseChannel parses a discovery channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelSocial, ChannelRegistry, ChannelIndexer:
		return Channel(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChannel, s)
}
