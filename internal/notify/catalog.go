package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys. The English text doubles as the key.
const (
	MsgCheckingBackend    = "Checking backend service..."
	MsgBackendHTTPError   = "Backend service error: HTTP %d"
	MsgBackendReturned    = "Backend returned HTTP %d"
	MsgBackendNotReady    = "Backend dependencies not ready (HTTP %d)"
	MsgBackendStatus      = "Backend reported status %q"
	MsgBackendTimeout     = "Backend timed out, is the service running?"
	MsgBackendUnreachable = "Cannot reach backend: %v"
	MsgCheckingModule     = "Checking emotion analysis module..."
	MsgModuleNotLoaded    = "Emotion analysis module not fully loaded, some features may be limited"
	MsgBackendHealthy     = "Backend healthy"
	MsgReconnecting       = "Reconnecting... (%d/%d)"
	MsgCannotConnect      = "Cannot connect to the server, please check that the backend is running"
	MsgConnectFailed      = "Connection failed, please check that the backend is running"
	MsgBackendNotStarted  = "Backend not ready, please make sure the containers are running"
	MsgConnectingNotice   = "Connecting to the EVA backend..."
	MsgOpeningSocket      = "Opening WebSocket connection..."
	MsgSocketTimeout      = "WebSocket connection timed out"
	MsgSocketError        = "WebSocket connection error: %v"
	MsgConnected          = "Connected"
	MsgConnectedNotice    = "Connected to the EVA backend"
	MsgDegraded           = "Emotion analysis module not fully loaded, falling back to the alternative analyzer"
	MsgConnectionLost     = "Connection to the server was lost, reconnecting..."
	MsgConnectionLostLine = "Disconnected, reconnecting..."
	MsgHeartbeatStale     = "No heartbeat reply from the server"
	MsgDisconnected       = "Disconnected"
	MsgNotConnected       = "Server not connected, please try again later"
	MsgSendFailed         = "Failed to send message"
	MsgInvalidResponse    = "Received an invalid server response"
	MsgPlaybackFailed     = "Audio playback failed"
	MsgPortFree           = "No service is listening on %s, start the EVA backend (docker-compose up -d)"
)

var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var matcher = language.NewMatcher(supported)

func init() {
	zh := language.SimplifiedChinese
	for key, text := range map[string]string{
		MsgCheckingBackend:    "正在检查后端服务状态...",
		MsgBackendHTTPError:   "后端服务异常: HTTP %d",
		MsgBackendReturned:    "后端服务返回错误: HTTP %d",
		MsgBackendNotReady:    "后端依赖服务未就绪 (HTTP %d)",
		MsgBackendStatus:      "后端服务状态异常: %q",
		MsgBackendTimeout:     "连接超时，请检查后端服务是否启动",
		MsgBackendUnreachable: "连接失败: %v",
		MsgCheckingModule:     "正在检查情感分析模块...",
		MsgModuleNotLoaded:    "情感分析模块未完全加载，部分功能可能受限",
		MsgBackendHealthy:     "后端服务运行正常",
		MsgReconnecting:       "正在尝试重新连接...(%d/%d)",
		MsgCannotConnect:      "无法连接到服务器，请检查后端服务是否启动",
		MsgConnectFailed:      "连接失败，请检查后端服务是否启动",
		MsgBackendNotStarted:  "后端服务未就绪，请检查Docker容器状态",
		MsgConnectingNotice:   "正在连接到 EVA 后端服务...",
		MsgOpeningSocket:      "正在建立WebSocket连接...",
		MsgSocketTimeout:      "WebSocket连接超时",
		MsgSocketError:        "连接错误: %v",
		MsgConnected:          "连接成功",
		MsgConnectedNotice:    "已连接到 EVA 后端服务",
		MsgDegraded:           "情感分析模块未完全加载，系统将使用备选方案进行情感分析",
		MsgConnectionLost:     "与服务器的连接已断开，正在尝试重新连接...",
		MsgConnectionLostLine: "连接已断开，正在尝试重新连接...",
		MsgHeartbeatStale:     "服务器心跳无响应",
		MsgDisconnected:       "已断开连接",
		MsgNotConnected:       "服务器未连接，稍后再试",
		MsgSendFailed:         "消息发送失败",
		MsgInvalidResponse:    "收到无效的服务器响应",
		MsgPlaybackFailed:     "音频播放失败",
		MsgPortFree:           "%s 上没有服务在监听，请启动EVA后端服务 (docker-compose up -d)",
	} {
		if err := message.SetString(zh, key, text); err != nil {
			panic(err)
		}
	}
}
