package entity

import "io"

// LocalMedia is an attachment that still has to go through the blob service.
type LocalMedia struct {
	Kind     MessageType
	Filename string
	Reader   io.Reader
}
