package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

const (
	chatListFilename = "chatlist.json"
	messagesFilename = "messages.json"
	chatsDirname     = "chats"
)

// ChatInfo is one entry of the chat list index.
type ChatInfo struct {
	ChatID         string    `json:"chat_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// Manager maps chat ids to their on-disk directories and keeps the chat
// list index current. Layout under root:
//
//	chatlist.json
//	chats/<chat-id>/messages.json
//	chats/<chat-id>/...        (vector collection artifacts, cache)
type Manager struct {
	root     string
	chatID   string
	chatList map[string]ChatInfo
	State    *ConversationState
}

// NewChat creates a fresh chat with a generated id under root.
func NewChat(root string) (*Manager, error) {
	return openChat(root, uuid.NewString(), true)
}

// ResumeChat opens an existing chat and loads its persisted messages.
func ResumeChat(root, chatID string) (*Manager, error) {
	return openChat(root, chatID, false)
}

func openChat(root, chatID string, create bool) (*Manager, error) {
	m := &Manager{
		root:   root,
		chatID: chatID,
		State:  NewConversationState(),
	}
	if err := os.MkdirAll(m.ChatDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create chat dir: %w", err)
	}
	if err := m.loadChatList(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	info, exists := m.chatList[chatID]
	if create && exists {
		return nil, fmt.Errorf("chat id %q already exists", chatID)
	}
	if !exists {
		info = ChatInfo{ChatID: chatID, CreatedAt: now}
	}
	info.LastAccessedAt = now
	m.chatList[chatID] = info
	if err := m.saveChatList(); err != nil {
		return nil, err
	}

	if !create {
		if err := m.loadMessages(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) ChatID() string { return m.chatID }

// ChatDir is where everything belonging to this chat lives, including the
// loader cache and vector collection artifacts.
func (m *Manager) ChatDir() string {
	return filepath.Join(m.root, chatsDirname, m.chatID)
}

// Chats lists all known chats, newest first by last access.
func (m *Manager) Chats() []ChatInfo {
	out := make([]ChatInfo, 0, len(m.chatList))
	for _, info := range m.chatList {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessedAt.After(out[j].LastAccessedAt)
	})
	return out
}

// Save persists the conversation state to the chat's directory.
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.State.Messages(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	path := filepath.Join(m.ChatDir(), messagesFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

// Delete removes the chat's directory and its index entry.
func (m *Manager) Delete() error {
	if err := os.RemoveAll(m.ChatDir()); err != nil {
		return fmt.Errorf("remove chat dir: %w", err)
	}
	delete(m.chatList, m.chatID)
	return m.saveChatList()
}

func (m *Manager) loadMessages() error {
	path := filepath.Join(m.ChatDir(), messagesFilename)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read messages: %w", err)
	}

	var msgs []*schema.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("decode messages: %w", err)
	}
	m.State.replace(msgs)
	return nil
}

func (m *Manager) chatListPath() string {
	return filepath.Join(m.root, chatListFilename)
}

func (m *Manager) loadChatList() error {
	m.chatList = map[string]ChatInfo{}
	data, err := os.ReadFile(m.chatListPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read chat list: %w", err)
	}
	if err := json.Unmarshal(data, &m.chatList); err != nil {
		return fmt.Errorf("decode chat list: %w", err)
	}
	return nil
}

func (m *Manager) saveChatList() error {
	data, err := json.MarshalIndent(m.chatList, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat list: %w", err)
	}
	if err := os.WriteFile(m.chatListPath(), data, 0o644); err != nil {
		return fmt.Errorf("write chat list: %w", err)
	}
	return nil
}
