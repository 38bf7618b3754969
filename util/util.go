package util

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func HashKeyUsingSha256Checksum(data string) string {
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

func GetUUID() string {
	return uuid.New().String()
}

func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GetStringListAsBatch splits list into consecutive batches of at most batchSize.
func GetStringListAsBatch(list []string, batchSize int) [][]string {
	batchList := make([][]string, 0)
	if batchSize < 1 {
		batchSize = 1
	}

	listLen := len(list)
	for i := 0; i < listLen; {
		next := i + batchSize
		if next > listLen {
			next = listLen
		}

		batchList = append(batchList, list[i:next])
		i = next
	}

	return batchList
}

func StringValueIn(value string, list []string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

// GetTokensFromStringListAsString splits a comma separated list, dropping empty tokens.
func GetTokensFromStringListAsString(stringList string) []string {
	tokens := make([]string, 0)
	for _, token := range strings.Split(stringList, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
