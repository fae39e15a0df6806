package conversation

import "errors"

var errEmptyReply = errors.New("conversation: model returned no text")
