package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard field names so every layer logs the same keys.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Collection names the store collection an operation touched.
func Collection(v string) zap.Field { return zap.String("collection", v) }

// Op names the operation being performed.
func Op(v string) zap.Field { return zap.String("op", v) }

func Err(err error) zap.Field { return zap.Error(err) }
