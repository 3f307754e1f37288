package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Global.NodeType != NodeTypeGateway {
		t.Fatalf("node type = %s", Global.NodeType)
	}
	if Global.Port != 8080 || Global.GrpcPort != 50051 {
		t.Fatalf("ports = %d/%d", Global.Port, Global.GrpcPort)
	}
	if !strings.HasPrefix(Global.NodeID, "gateway-") {
		t.Fatalf("node id not minted: %q", Global.NodeID)
	}
	if Global.Kafka.ArchiveTopic != "chat.message.archive" {
		t.Fatalf("archive topic = %s", Global.Kafka.ArchiveTopic)
	}
	if Global.Nats.Subject != "offline.room.ingest" {
		t.Fatalf("nats subject = %s", Global.Nats.Subject)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PRELAY_NODE_TYPE", NodeTypeArchiver)
	t.Setenv("PRELAY_NODE_ID", "arch-7")
	t.Setenv("PRELAY_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PRELAY_BACKLOG_WINDOW", "250")

	if err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Global.NodeType != NodeTypeArchiver || Global.NodeID != "arch-7" {
		t.Fatalf("node = %s/%s", Global.NodeType, Global.NodeID)
	}
	if len(Global.Kafka.Brokers) != 2 || Global.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", Global.Kafka.Brokers)
	}
	if Global.Relay.BacklogWindow != 250 {
		t.Fatalf("window = %d", Global.Relay.BacklogWindow)
	}
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	t.Setenv("PRELAY_NODE_TYPE", "edge")
	if err := Load(); err == nil {
		t.Fatal("unknown role accepted")
	}
}
