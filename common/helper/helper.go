package helper

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GetTimestamp() int64 {
	return time.Now().Unix()
}

func GetTimeString() string {
	now := time.Now()
	return fmt.Sprintf("%s%d", now.Format("20060102150405"), now.UnixNano()%1e9)
}

func GenRequestID() string {
	return GetTimeString() + GetRandomNumberString(8)
}

func GenTaskID() string {
	return "task_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func GetRandomNumberString(length int) string {
	key := make([]byte, length)
	for i := 0; i < length; i++ {
		key[i] = byte(rand.Intn(10) + '0')
	}
	return string(key)
}

func MessageWithRequestId(message string, id string) string {
	return fmt.Sprintf("%s (request id: %s)", message, id)
}

func AssignOrDefault(value string, defaultValue string) string {
	if len(value) != 0 {
		return value
	}
	return defaultValue
}

func Seconds2Duration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
