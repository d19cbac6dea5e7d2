package dev

import (
	"context"
	"strings"
	"testing"

	"github.com/kazz187/devguild/internal/tool"
)

func mustExecute(t *testing.T, tl tool.Tool, params map[string]any) *tool.Result {
	t.Helper()
	res, err := tl.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func TestAPIEndpointExpress(t *testing.T) {
	res := mustExecute(t, NewAPIEndpoint(), map[string]any{
		"endpoint_name": "getUserProfile",
		"http_method":   "GET",
		"framework":     "express",
		"parameters": []any{
			map[string]any{"name": "userId", "type": "string", "location": "path", "required": true},
		},
	})
	for _, want := range []string{
		"router.get('/get-user-profile'",
		"(req: Request, res: Response)",
		"const userId = req.params.userId;",
		"return res.status(400).json({ error: 'userId is required' });",
		"export default router;",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
	if res.Meta["route"] != "/get-user-profile" {
		t.Errorf("route = %v", res.Meta["route"])
	}
}

func TestAPIEndpointFastAPI(t *testing.T) {
	res := mustExecute(t, NewAPIEndpoint(), map[string]any{
		"endpoint_name": "createOrder",
		"http_method":   "POST",
		"framework":     "fastapi",
		"parameters": []any{
			map[string]any{"name": "amount", "type": "number", "location": "body", "required": true},
		},
	})
	for _, want := range []string{
		"from fastapi import APIRouter",
		`@router.post("/create-order")`,
		"async def create_order(amount: int):",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
}

func TestAPIEndpointUnsupportedFramework(t *testing.T) {
	if _, err := NewAPIEndpoint().Execute(context.Background(), map[string]any{
		"endpoint_name": "x", "framework": "rails",
	}); err == nil {
		t.Error("expected error for unsupported framework")
	}
}

func TestORMModelSQLAlchemy(t *testing.T) {
	res := mustExecute(t, NewORMModel(), map[string]any{
		"model_name": "userAccount",
		"orm":        "sqlalchemy",
		"fields":     map[string]any{"email": "string", "age": "integer", "active": "boolean"},
	})
	for _, want := range []string{
		"class UserAccount(Base):",
		`__tablename__ = "user_account"`,
		"active = Column(Boolean)",
		"age = Column(Integer)",
		"email = Column(String)",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
	// Fields come out sorted regardless of map order.
	if strings.Index(res.Output, "active =") > strings.Index(res.Output, "email =") {
		t.Error("fields are not sorted")
	}
}

func TestORMModelPrisma(t *testing.T) {
	res := mustExecute(t, NewORMModel(), map[string]any{
		"model_name": "blog_post",
		"orm":        "prisma",
		"fields":     map[string]any{"title": "string", "view_count": "integer"},
	})
	for _, want := range []string{
		"model BlogPost {",
		"@id @default(autoincrement())",
		"title String",
		"viewCount Int",
		"updatedAt DateTime @updatedAt",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
}

func TestComponentFunctionalTypeScript(t *testing.T) {
	res := mustExecute(t, NewComponent(), map[string]any{
		"component_name": "user card",
		"use_typescript": true,
		"props":          map[string]any{"name": "string", "age": "number"},
	})
	for _, want := range []string{
		"interface UserCardProps {",
		"age: number;",
		"name: string;",
		"const UserCard: React.FC<UserCardProps> = ({ age, name }) => {",
		`<div className="user-card">`,
		"export default UserCard;",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
	if res.Meta["file"] != "UserCard.tsx" {
		t.Errorf("file = %v", res.Meta["file"])
	}
}

func TestComponentClassJavaScript(t *testing.T) {
	res := mustExecute(t, NewComponent(), map[string]any{
		"component_name": "NavBar",
		"component_type": "class",
		"use_typescript": false,
	})
	for _, want := range []string{
		"class NavBar extends Component {",
		"render() {",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
	if res.Meta["file"] != "NavBar.jsx" {
		t.Errorf("file = %v", res.Meta["file"])
	}
}

func TestStylesheetCSSAndSCSS(t *testing.T) {
	css := mustExecute(t, NewStylesheet(), map[string]any{
		"block_name": "ProfileCard",
		"format":     "css",
		"elements":   []any{"header", "avatar"},
	})
	for _, want := range []string{
		".profile-card {",
		"display: flex;",
		"flex-direction: column;",
		".profile-card__header {",
		".profile-card__avatar {",
	} {
		if !strings.Contains(css.Output, want) {
			t.Errorf("css missing %q:\n%s", want, css.Output)
		}
	}

	scss := mustExecute(t, NewStylesheet(), map[string]any{
		"block_name": "ProfileCard",
		"format":     "scss",
		"elements":   []any{"header"},
		"properties": map[string]any{"padding": "1rem"},
	})
	for _, want := range []string{
		".profile-card {",
		"padding: 1rem;",
		"&__header {",
	} {
		if !strings.Contains(scss.Output, want) {
			t.Errorf("scss missing %q:\n%s", want, scss.Output)
		}
	}
}

func TestSQLSchema(t *testing.T) {
	res := mustExecute(t, NewSQLSchema(), map[string]any{
		"table_name": "orderItem",
		"columns":    map[string]any{"quantity": "integer", "unitPrice": "float"},
		"indexes":    []any{"unitPrice"},
	})
	for _, want := range []string{
		"CREATE TABLE order_item (",
		"id BIGSERIAL PRIMARY KEY",
		"quantity INTEGER",
		"unit_price DOUBLE PRECISION",
		"created_at TIMESTAMP NOT NULL DEFAULT now()",
		"CREATE INDEX idx_order_item_unit_price ON order_item (unit_price);",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
}

func TestNoSQLSchema(t *testing.T) {
	res := mustExecute(t, NewNoSQLSchema(), map[string]any{
		"collection_name": "UserEvents",
		"fields":          map[string]any{"event_type": "string", "payload": "object"},
		"required":        []any{"event_type"},
	})
	for _, want := range []string{
		`db.createCollection("user_events", {`,
		"$jsonSchema: {",
		`required: ["eventType"]`,
		`bsonType: "object"`,
		"db.user_events.createIndex({ createdAt: 1 });",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
}

func TestShellScript(t *testing.T) {
	res := mustExecute(t, NewShellScript(), map[string]any{
		"script_name": "Deploy App",
		"commands":    []any{"go build ./...", "scp app server:/opt/app"},
		"description": "Build and ship the app",
	})
	for _, want := range []string{
		"#!/usr/bin/env bash",
		"# Build and ship the app",
		"set -euo pipefail",
		"go build ./...",
	} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("output missing %q:\n%s", want, res.Output)
		}
	}
	if res.Meta["file"] != "deploy-app.sh" {
		t.Errorf("file = %v", res.Meta["file"])
	}

	if _, err := NewShellScript().Execute(context.Background(), map[string]any{
		"script_name": "bad", "commands": []any{"if then fi"},
	}); err == nil {
		t.Error("expected error for invalid shell syntax")
	}
}

func TestRegisterAll(t *testing.T) {
	reg := tool.NewRegistry()
	if err := RegisterAll(reg, nil); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	descs := reg.Discover()
	if len(descs) != len(All()) {
		t.Fatalf("registered %d tools, want %d", len(descs), len(All()))
	}
	if descs[0].Name != "calculator" {
		t.Errorf("first tool = %s, want calculator", descs[0].Name)
	}

	filtered := tool.NewRegistry()
	if err := RegisterAll(filtered, []string{"text", "calculator"}); err != nil {
		t.Fatalf("RegisterAll filtered: %v", err)
	}
	got := filtered.Discover()
	if len(got) != 2 || got[0].Name != "calculator" || got[1].Name != "text" {
		t.Errorf("filtered registration order wrong: %+v", got)
	}
}

func TestSearchCatalogAndFallback(t *testing.T) {
	res := mustExecute(t, NewSearch(), map[string]any{"query": "react hooks tutorial"})
	if !strings.Contains(res.Output, "react.dev") {
		t.Errorf("expected react catalog results:\n%s", res.Output)
	}

	fallback := mustExecute(t, NewSearch(), map[string]any{"query": "obscure topic xyz"})
	if !strings.Contains(fallback.Output, "Stack Overflow") {
		t.Errorf("expected fallback results:\n%s", fallback.Output)
	}

	limited := mustExecute(t, NewSearch(), map[string]any{"query": "python", "max_results": 2})
	if limited.Meta["count"] != 2 {
		t.Errorf("count = %v, want 2", limited.Meta["count"])
	}
}
