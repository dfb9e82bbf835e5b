package natsgroup

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// linkSubject returns the subject carrying channel data from src to dst.
func (t *Transport) linkSubject(dst, src int, channel string) string {
	return t.linkBase + "." + strconv.Itoa(dst) + "." + strconv.Itoa(src) + "." + encodeChannel(channel)
}

// inboxSubject is the wildcard this rank subscribes to.
func inboxSubject(prefix, session string, rank int) string {
	return prefix + "." + session + ".link." + strconv.Itoa(rank) + ".>"
}

// parseLink extracts the source rank and channel from a link subject.
func parseLink(subject string) (int, string, error) {
	// ... .link.{dst}.{src}.{channel}
	tokens := strings.Split(subject, ".")
	if len(tokens) < 4 || tokens[len(tokens)-4] != "link" {
		return 0, "", fmt.Errorf("not a link subject: %q", subject)
	}

	src, err := strconv.Atoi(tokens[len(tokens)-2])
	if err != nil {
		return 0, "", fmt.Errorf("bad source rank in %q: %w", subject, err)
	}
	channel, err := decodeChannel(tokens[len(tokens)-1])
	if err != nil {
		return 0, "", fmt.Errorf("bad channel in %q: %w", subject, err)
	}

	return src, channel, nil
}

// Communicator names contain '.' and '/', so they are base64url encoded into
// a single subject token.
func encodeChannel(channel string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(channel))
}

func decodeChannel(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func rankKey(rank int) string {
	return "rank-" + strconv.Itoa(rank)
}

func readyKey(rank int) string {
	return "ready." + strconv.Itoa(rank)
}

const (
	sizeKey      = "size"
	readyPattern = "ready.*"
)
