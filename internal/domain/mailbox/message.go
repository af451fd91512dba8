package mailbox

// Message is a raw inbound message as delivered by the transport.
type Message struct {
	Topic   string
	Payload []byte
}
