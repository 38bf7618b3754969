package util

import "github.com/gin-gonic/gin"

const scopesContextKey = "scopes"

func getScopes(c *gin.Context) map[string]interface{} {
	value, exists := c.Get(scopesContextKey)
	if !exists {
		return nil
	}
	scopes, _ := value.(map[string]interface{})
	return scopes
}

// SetScope sets a request scoped value on the gin context.
func SetScope(c *gin.Context, key string, value interface{}) {
	scopes := getScopes(c)
	if scopes == nil {
		c.Set(scopesContextKey, map[string]interface{}{key: value})
		return
	}
	scopes[key] = value
}

// GetScopeByKey returns nil when the key was never set.
func GetScopeByKey(c *gin.Context, key string) interface{} {
	return getScopes(c)[key]
}

func GetScopeStringByKey(c *gin.Context, key string) string {
	value, _ := GetScopeByKey(c, key).(string)
	return value
}
