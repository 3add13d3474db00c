package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func main() {
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := flag.String("addr", "http://127.0.0.1:8000", "server base URL")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	suffix := time.Now().UnixNano()
	email := fmt.Sprintf("smoke%d@example.com", suffix)

	var reg authResponse
	status := post(client, *base+"/registrer", "", map[string]string{
		"username": fmt.Sprintf("smoke%d", suffix),
		"email":    email,
		"password": "smoke-pass",
	}, &reg)
	if status != http.StatusCreated {
		log.Fatalf("register: unexpected status %d", status)
	}
	log.Printf("registered user id=%d", reg.User.ID)

	var login authResponse
	if status := post(client, *base+"/login", "", map[string]string{"email": email, "password": "smoke-pass"}, &login); status != http.StatusOK {
		log.Fatalf("login: unexpected status %d", status)
	}
	if login.Token != reg.Token {
		log.Printf("warning: login returned a different token than registration")
	}

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws?token=" + login.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// wait for the ready handshake before triggering events
	waitFor(conn, "ready", 2*time.Second)

	var task map[string]any
	status = post(client, *base+"/tareas/crear/", login.Token, map[string]any{
		"titulo":      "smoke task",
		"fecha_vence": time.Now().Format("2006-01-02"),
	}, &task)
	if status != http.StatusCreated {
		log.Fatalf("create task: unexpected status %d", status)
	}

	msg := waitFor(conn, "task.created", 3*time.Second)
	log.Printf("event: %s", msg)

	if status := post(client, *base+"/logout", login.Token, nil, nil); status != http.StatusOK {
		log.Fatalf("logout: unexpected status %d", status)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		log.Println("connection closed on logout")
	} else {
		log.Printf("warning: expected close after logout, got %v", err)
	}

	log.Println("smoke test finished")
}

func post(client *http.Client, url, token string, body, out any) int {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		log.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	res, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s: %v", url, err)
	}
	defer res.Body.Close()

	if out != nil && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s: decode: %v", url, err)
		}
	}
	return res.StatusCode
}

func waitFor(conn *websocket.Conn, msgType string, timeout time.Duration) []byte {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("waiting for %s: %v", msgType, err)
		}
		var obj struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(msg, &obj) == nil && obj.Type == msgType {
			return msg
		}
	}
	log.Fatalf("timed out waiting for %s", msgType)
	return nil
}
