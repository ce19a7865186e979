package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/pkg/logger"
)

// 短信类型
const (
	SMSKindReminder     = "rent_reminder"
	SMSKindConfirmation = "payment_confirmation"
	SMSKindWelcome      = "move_in_welcome"
	SMSKindOverdue      = "overdue_notice"
)

// SMSJob 发往短信网关的任务
type SMSJob struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// InterfaceSMSSender 短信发送通道
type InterfaceSMSSender interface {
	Send(ctx context.Context, job SMSJob) error
	Close()
}

func smsLog() *logrus.Entry {
	return logger.WithFields(logrus.Fields{"component": "sms"})
}

// LogSMSSender 只记录日志，未启用短信网关时使用
type LogSMSSender struct{}

// Send 记录短信内容
func (LogSMSSender) Send(ctx context.Context, job SMSJob) error {
	smsLog().WithFields(logrus.Fields{"to": job.To, "kind": job.Kind, "id": job.ID}).Info("短信未启用，仅记录")
	return nil
}

// Close 无需释放资源
func (LogSMSSender) Close() {}

// MQTTSMSSender 将短信任务发布到MQTT主题，由外部短信网关消费
type MQTTSMSSender struct {
	Config *config.Config
	Client mqtt.Client

	publishMutex   sync.Mutex
	connectedMutex sync.RWMutex
	isConnected    bool
}

// NewMQTTSMSSender 创建MQTT短信发送器，连接在首次发送时建立
func NewMQTTSMSSender(cfg *config.Config) *MQTTSMSSender {
	s := &MQTTSMSSender{Config: cfg}
	s.initClient()
	return s
}

func (s *MQTTSMSSender) initClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// 使用唯一的客户端ID，避免多实例冲突
	opts.SetClientID(fmt.Sprintf("%s-%s", s.Config.MQTTClientID, uuid.New().String()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	if strings.HasPrefix(s.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(s.Config.MQTTBrokerURL, "tls://") || s.Config.MQTTSSLEnabled {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		smsLog().WithError(err).Warn("MQTT连接丢失")
		s.setConnected(false)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		smsLog().WithField("broker", s.Config.MQTTBrokerURL).Info("MQTT已连接")
		s.setConnected(true)
	})

	s.Client = mqtt.NewClient(opts)
}

func (s *MQTTSMSSender) setConnected(v bool) {
	s.connectedMutex.Lock()
	s.isConnected = v
	s.connectedMutex.Unlock()
}

func (s *MQTTSMSSender) connected() bool {
	s.connectedMutex.RLock()
	defer s.connectedMutex.RUnlock()
	return s.isConnected && s.Client.IsConnected()
}

// Connect 连接到MQTT服务器，失败时指数退避重试
func (s *MQTTSMSSender) Connect(ctx context.Context) error {
	if s.connected() {
		return nil
	}

	maxRetries := 3
	var err error
	for i := 0; i < maxRetries; i++ {
		token := s.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			s.setConnected(true)
			return nil
		}
		err = token.Error()
		if err == nil {
			err = fmt.Errorf("连接超时")
		}
		backoff := time.Duration(1<<uint(i)) * time.Second
		smsLog().WithError(err).Warnf("MQTT连接尝试 %d/%d 失败，%v 后重试", i+1, maxRetries, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("MQTT连接失败，已尝试 %d 次: %w", maxRetries, err)
}

// Send 发布短信任务
func (s *MQTTSMSSender) Send(ctx context.Context, job SMSJob) error {
	s.publishMutex.Lock()
	defer s.publishMutex.Unlock()

	if err := s.Connect(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化短信任务失败: %w", err)
	}

	token := s.Client.Publish(s.Config.SMSTopic, byte(s.Config.MQTTQoS), false, payload)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("发布短信任务超时")
	}
	if token.Error() != nil {
		return fmt.Errorf("发布短信任务失败: %w", token.Error())
	}

	smsLog().WithFields(logrus.Fields{"topic": s.Config.SMSTopic, "kind": job.Kind, "id": job.ID}).Info("短信任务已发布")
	return nil
}

// Close 断开连接
func (s *MQTTSMSSender) Close() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
}

// NewSMSSender 根据配置选择短信发送通道
func NewSMSSender(cfg *config.Config) InterfaceSMSSender {
	if !cfg.SMSEnabled {
		return LogSMSSender{}
	}
	return NewMQTTSMSSender(cfg)
}
