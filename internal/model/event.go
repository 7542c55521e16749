package model

// Attr is one key-value log pair emitted by an operation.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EventRecord is the journaled form of one operation's log attributes.
type EventRecord struct {
	Op        string `json:"op"`
	Attrs     []Attr `json:"attrs"`
	Timestamp int64  `json:"timestamp"`
}
