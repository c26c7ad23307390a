package postgres

var (
	EncodePayload = encodePayload
	DecodePayload = decodePayload
)
