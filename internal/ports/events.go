package ports

type EventBus interface {
	Publish(topic string, payload []byte)
	Subscribe(topics ...string) (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

const (
	TopicProgressCompleted      = "progress.completed"
	TopicSubscriptionProgressed = "subscription.progressed"
	TopicSessionState           = "session.state"
	TopicSettingsUpdated        = "settings.updated"
)
