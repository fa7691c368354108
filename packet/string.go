package packet

// String is a text packet for transports that are natively text based
// (VISA message resources, websocket text frames). No byte encoding takes place.
type String struct {
	data string
}

var (
	_ Transmittable[string] = String{}
	_ Receivable[string]    = String{}
)

func NewString(data string) String {
	return String{data: data}
}

// DecodeString creates a String packet from wire text. It never fails.
func DecodeString(wire string) (String, error) {
	return String{data: wire}, nil
}

func (p String) Serialize() (string, error) {
	return p.data, nil
}

func (p String) Deserialize() string {
	return p.data
}

func (p String) String() string {
	return p.data
}
