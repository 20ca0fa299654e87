package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base for topics the bridge publishes itself.
const TopicPrefix = "alarmbridge"

// Topics provides builders for the MQTT topics the bridge uses.
//
//	topics := mqtt.Topics{}
//	topics.Track("com.axis.consolidated_track.v1.beta", "1")
//	// Returns: "com.axis.consolidated_track.v1.beta/1"
type Topics struct{}

// Track returns the topic carrying track messages for a topic/source pair.
// An empty source subscribes to the bare topic.
//
// Example: com.axis.consolidated_track.v1.beta/1
func (Topics) Track(topic, source string) string {
	if source == "" {
		return topic
	}
	return topic + "/" + source
}

// Status returns the retained online/offline status topic for a client.
//
// Example: alarmbridge/alarmbridge-B8A44F9EEFE0/status
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, clientID)
}

// validateSubscribeTopic rejects topics MQTT cannot subscribe to as a
// single literal filter.
func validateSubscribeTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed in %q", ErrInvalidTopic, topic)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: NUL character in topic", ErrInvalidTopic)
	}
	return nil
}
