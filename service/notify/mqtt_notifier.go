/*
 * @module service/notify/mqtt_notifier
 * @description MQTT任务状态通知器，接口启停和批次失败时向运维主题推送通知
 * @architecture 观测层 - 可选的出站通知
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 构造通知 -> 发布到MQTT主题 -> 失败仅记日志
 * @rules MQTT_BROKER未配置时通知为空操作；通知失败不影响主流程
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/basicdata
 */

package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Notification 任务状态通知
type Notification struct {
	InterfaceName string    `json:"interfaceName"`
	Level         string    `json:"level"` // info, warn, error
	Message       string    `json:"message"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// MQTTNotifier MQTT通知器
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
}

// NewMQTTNotifier 按环境变量创建通知器，MQTT_BROKER未配置时返回空操作通知器
func NewMQTTNotifier() *MQTTNotifier {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		slog.Info("未配置MQTT_BROKER，任务状态通知为空操作")
		return &MQTTNotifier{}
	}

	topic := os.Getenv("MQTT_TOPIC")
	if topic == "" {
		topic = "esb-bridge/job-status"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("esb-bridge-%d", os.Getpid())).
		SetUsername(os.Getenv("MQTT_USERNAME")).
		SetPassword(os.Getenv("MQTT_PASSWORD")).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		slog.Error("MQTT连接失败，任务状态通知降级为空操作", "broker", broker, "error", token.Error())
		return &MQTTNotifier{}
	}

	slog.Info("MQTT通知器初始化成功", "broker", broker, "topic", topic)
	return &MQTTNotifier{client: client, topic: topic}
}

// Notify 发布一条通知
func (n *MQTTNotifier) Notify(interfaceName, level, message string) {
	if n.client == nil {
		return
	}

	payload, err := json.Marshal(Notification{
		InterfaceName: interfaceName,
		Level:         level,
		Message:       message,
		OccurredAt:    time.Now(),
	})
	if err != nil {
		return
	}

	token := n.client.Publish(n.topic, 1, false, payload)
	go func() {
		if token.WaitTimeout(3*time.Second) && token.Error() != nil {
			slog.Error("MQTT通知发布失败", "interface", interfaceName, "error", token.Error())
		}
	}()
}

// Close 断开MQTT连接
func (n *MQTTNotifier) Close() {
	if n.client != nil {
		n.client.Disconnect(250)
	}
}
