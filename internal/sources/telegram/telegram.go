package telegram

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"linkprobe/internal/logger"
	"linkprobe/internal/parser"
	"linkprobe/internal/sources"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"golang.org/x/net/proxy"
)

// ChannelSource scrapes proxy links out of Telegram channel history. Many
// subscription feeds are just public channels posting links, so this is the
// second retrieval path next to plain HTTP.
type ChannelSource struct{}

func (s *ChannelSource) Fetch(params map[string]interface{}) ([]string, error) {
	apiID, _ := params["api_id"].(int)
	apiHash, _ := params["api_hash"].(string)
	if apiID == 0 || apiHash == "" {
		return nil, fmt.Errorf("missing api_id or api_hash")
	}

	limit, _ := params["limit"].(int)
	if limit == 0 {
		limit = 500
	}

	sessionFile, _ := params["session_file"].(string)
	if sessionFile == "" {
		sessionFile = "telegram.session"
	}

	chatIDs := chatIDList(params["chats"])

	dialer := proxyDialer(params)

	sessionDir := filepath.Dir(sessionFile)
	if sessionDir != "." && sessionDir != "" {
		_ = os.MkdirAll(sessionDir, 0700)
	}

	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: sessionFile},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}),
	})

	ctx := context.Background()
	var allLinks []string

	err := client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(termAuth{}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		logger.Log.Info("Telegram login successful")

		api := client.API()
		peers, err := resolvePeers(ctx, api)
		if err != nil {
			return err
		}

		for _, chatID := range chatIDs {
			peer, found := peers[chatID]
			if !found {
				logger.Log.Warnf("Could not resolve chat ID %d (not joined or not in recent dialogs)", chatID)
				continue
			}
			links := scrapeHistory(ctx, api, peer, chatID, limit)
			allLinks = append(allLinks, links...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return allLinks, nil
}

// chatIDList tolerates the mixed int types yaml produces.
func chatIDList(raw interface{}) []int64 {
	var ids []int64
	chats, ok := raw.([]interface{})
	if !ok {
		return ids
	}
	for _, chat := range chats {
		switch id := chat.(type) {
		case int:
			ids = append(ids, int64(id))
		case int64:
			ids = append(ids, id)
		}
	}
	return ids
}

func proxyDialer(params map[string]interface{}) proxy.Dialer {
	proxyURL, ok := params["_proxy_url"].(string)
	if !ok || proxyURL == "" {
		return proxy.Direct
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return proxy.Direct
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return proxy.Direct
	}
	logger.Log.Infof("Telegram using proxy: %s", proxyURL)
	return d
}

// resolvePeers walks the recent dialog list to map chat IDs (in both plain
// and -100 forms) to input peers with access hashes.
func resolvePeers(ctx context.Context, api *tg.Client) (map[int64]tg.InputPeerClass, error) {
	peers := make(map[int64]tg.InputPeerClass)

	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	}

	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Channel:
			peer := &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
			peers[c.ID] = peer
			peers[-1000000000000-c.ID] = peer
		case *tg.Chat:
			peer := &tg.InputPeerChat{ChatID: c.ID}
			peers[c.ID] = peer
			peers[-c.ID] = peer
		}
	}
	return peers, nil
}

// scrapeHistory pages backwards through a chat's history (max 100 messages
// per request) collecting proxy links.
func scrapeHistory(ctx context.Context, api *tg.Client, peer tg.InputPeerClass, chatID int64, limit int) []string {
	logger.Log.Infof("Scraping chat %d (limit %d)...", chatID, limit)

	var links []string
	fetched := 0
	offsetID := 0

	for fetched < limit {
		batchSize := 100
		if remaining := limit - fetched; remaining < 100 {
			batchSize = remaining
		}

		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			Limit:    batchSize,
			OffsetID: offsetID,
		})
		if err != nil {
			logger.Log.Errorf("Failed to fetch history batch: %v", err)
			break
		}

		var messages []tg.MessageClass
		switch h := history.(type) {
		case *tg.MessagesMessages:
			messages = h.Messages
		case *tg.MessagesMessagesSlice:
			messages = h.Messages
		case *tg.MessagesChannelMessages:
			messages = h.Messages
		}

		if len(messages) == 0 {
			break
		}

		for _, msg := range messages {
			if m, ok := msg.(*tg.Message); ok {
				links = append(links, parser.ExtractLinks(m.Message)...)
				offsetID = m.ID
			}
		}
		fetched += len(messages)
	}

	logger.Log.Infof("Found %d links in %d messages.", len(links), fetched)
	return links
}

// termAuth reads credentials interactively when no session file exists yet.
type termAuth struct{}

func (termAuth) Phone(_ context.Context) (string, error) {
	fmt.Print("Enter phone number: ")
	return readLine()
}

func (termAuth) Password(_ context.Context) (string, error) {
	fmt.Print("Enter 2FA password: ")
	return readLine()
}

func (termAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Enter code: ")
	return readLine()
}

func (termAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	fmt.Print("Enter first name: ")
	firstName, _ := readLine()
	fmt.Print("Enter last name: ")
	lastName, _ := readLine()
	return auth.UserInfo{FirstName: firstName, LastName: lastName}, nil
}

func (termAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func readLine() (string, error) {
	text, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(text), err
}

func init() {
	sources.Register("telegram", func() sources.Source {
		return &ChannelSource{}
	})
}
