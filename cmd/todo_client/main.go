package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type todo struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type todoInput struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type client struct {
	base string
	http *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp, fmt.Errorf("%s %s: %s (%s)", method, path, resp.Status, e.Detail)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "todo API base URL")
	mode := flag.String("mode", "list", "mode: list | create | get | update | delete | options")
	text := flag.String("text", "", "text for create/update")
	done := flag.Bool("done", false, "done flag for create/update")
	id := flag.Int64("id", 0, "id for get/update/delete/options")
	flag.Parse()

	c := &client{
		base: strings.TrimRight(*addr, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	itemPath := fmt.Sprintf("/todos/%d", *id)
	needID := func() {
		if *id == 0 {
			log.Fatalf("id is required for %s", *mode)
		}
	}

	switch *mode {
	case "list":
		var todos []todo
		if _, err := c.do(ctx, http.MethodGet, "/todos/", nil, &todos); err != nil {
			log.Fatal(err)
		}
		if len(todos) == 0 {
			fmt.Println("no todos")
			return
		}
		fmt.Println("todos:")
		for _, t := range todos {
			fmt.Printf("- id=%d text=%s done=%v\n", t.ID, t.Text, t.Done)
		}

	case "create":
		if *text == "" {
			log.Fatal("text is required for create")
		}
		var t todo
		resp, err := c.do(ctx, http.MethodPost, "/todos/", todoInput{Text: *text, Done: *done}, &t)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("created: id=%d text=%s done=%v location=%s\n", t.ID, t.Text, t.Done, resp.Header.Get("Location"))

	case "get":
		needID()
		var t todo
		if _, err := c.do(ctx, http.MethodGet, itemPath, nil, &t); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("id=%d text=%s done=%v\n", t.ID, t.Text, t.Done)

	case "update":
		needID()
		if *text == "" {
			log.Fatal("text is required for update")
		}
		var t todo
		if _, err := c.do(ctx, http.MethodPut, itemPath, todoInput{Text: *text, Done: *done}, &t); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("updated: id=%d text=%s done=%v\n", t.ID, t.Text, t.Done)

	case "delete":
		needID()
		if _, err := c.do(ctx, http.MethodDelete, itemPath, nil, nil); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("deleted: id=%d\n", *id)

	case "options":
		path := "/todos/"
		if *id != 0 {
			path = itemPath
		}
		resp, err := c.do(ctx, http.MethodOptions, path, nil, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("allow: %s\n", resp.Header.Get("Allow"))

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}
