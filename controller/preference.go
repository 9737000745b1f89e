package controller

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
)

// Preferences 存在 cookie 会话里的界面偏好，不含任何密钥
type Preferences struct {
	Tier   string `json:"tier" validate:"max=64"`
	Aspect string `json:"aspect" validate:"omitempty,oneof=landscape portrait"`
	Ratio  string `json:"ratio" validate:"omitempty,oneof=landscape portrait"`
	Theme  string `json:"theme" validate:"omitempty,oneof=light dark"`
}

func (s *Server) GetPreferences(c *gin.Context) {
	session := sessions.Default(c)
	prefs := Preferences{
		Tier:   sessionString(session, "tier"),
		Aspect: sessionString(session, "aspect"),
		Ratio:  sessionString(session, "ratio"),
		Theme:  sessionString(session, "theme"),
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": prefs})
}

func (s *Server) UpdatePreferences(c *gin.Context) {
	var prefs Preferences
	if err := common.UnmarshalBodyReusable(c, &prefs); err != nil {
		badRequest(c, "无效的偏好设置")
		return
	}
	if err := common.Validate.Struct(&prefs); err != nil {
		badRequest(c, "无效的偏好设置: "+err.Error())
		return
	}
	session := sessions.Default(c)
	session.Set("tier", prefs.Tier)
	session.Set("aspect", prefs.Aspect)
	session.Set("ratio", prefs.Ratio)
	session.Set("theme", prefs.Theme)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func sessionString(session sessions.Session, key string) string {
	if v := session.Get(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
