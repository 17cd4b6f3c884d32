package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"agrochain/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("AGROCHAIN_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "register":
		requireArgs(args, 2, "Please provide the farmer address.")
		simpleCall("registry_registerFarmer", map[string]string{"caller": args[1]})
	case "verify":
		requireArgs(args, 4, "Please provide verifier, farmer and practice id.")
		practiceID, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			fmt.Println("Error: Invalid practice id.")
			return
		}
		simpleCall("registry_verifyPractice", map[string]interface{}{
			"caller":     args[1],
			"farmer":     args[2],
			"practiceId": uint32(practiceID),
		})
	case "claim":
		requireArgs(args, 2, "Please provide the farmer address.")
		result, err := rpcCall("registry_claimRewards", map[string]string{"caller": args[1]})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		var claim struct {
			Reward string `json:"reward"`
		}
		if err := json.Unmarshal(result, &claim); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return
		}
		fmt.Printf("Claimed %s AGRI\n", claim.Reward)
	case "farmer":
		requireArgs(args, 2, "Please provide an address.")
		getFarmer(args[1])
	case "practice":
		requireArgs(args, 2, "Please provide a practice id.")
		practiceID, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			fmt.Println("Error: Invalid practice id.")
			return
		}
		getPractice(uint32(practiceID))
	case "is-verifier":
		requireArgs(args, 2, "Please provide an address.")
		result, err := rpcCall("registry_isVerifier", map[string]string{"address": args[1]})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Verifier: %s\n", strings.TrimSpace(string(result)))
	case "add-verifier":
		requireArgs(args, 3, "Please provide the owner and verifier addresses.")
		simpleCall("registry_addVerifier", map[string]string{"caller": args[1], "verifier": args[2]})
	case "remove-verifier":
		requireArgs(args, 3, "Please provide the owner and verifier addresses.")
		simpleCall("registry_removeVerifier", map[string]string{"caller": args[1], "verifier": args[2]})
	case "init-practices":
		requireArgs(args, 2, "Please provide the owner address.")
		simpleCall("registry_initPractices", map[string]string{"caller": args[1]})
	case "balance":
		requireArgs(args, 2, "Please provide an address.")
		result, err := rpcCall("registry_balance", map[string]string{"address": args[1]})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Balance: %s AGRI\n", trimQuotes(result))
	case "supply":
		result, err := rpcCall("registry_tokenSupply", nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Total supply: %s AGRI\n", trimQuotes(result))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: agrochain-cli [--rpc <endpoint>] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key                                 Generate a new account key")
	fmt.Println("  register <farmer>                            Register the farmer address")
	fmt.Println("  verify <verifier> <farmer> <practiceId>      Verify a practice for a farmer")
	fmt.Println("  claim <farmer>                               Claim accumulated rewards")
	fmt.Println("  farmer <address>                             Show a farmer record")
	fmt.Println("  practice <id>                                Show a catalog entry")
	fmt.Println("  is-verifier <address>                        Check the verifier flag")
	fmt.Println("  add-verifier <owner> <verifier>              Authorise a verifier (owner only)")
	fmt.Println("  remove-verifier <owner> <verifier>           Revoke a verifier (owner only)")
	fmt.Println("  init-practices <owner>                       Write the practice catalog (owner only)")
	fmt.Println("  balance <address>                            Show an AGRI balance")
	fmt.Println("  supply                                       Show the total AGRI supply")
}

func requireArgs(args []string, n int, message string) {
	if len(args) < n {
		fmt.Printf("Error: %s\n", message)
		printUsage()
		os.Exit(1)
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}

	fileName := "wallet.key"
	if err := os.WriteFile(fileName, key.Bytes(), 0600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", fileName, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file securely.")
}

func getFarmer(addr string) {
	result, err := rpcCall("registry_getFarmer", map[string]string{"address": addr})
	if err != nil {
		fmt.Printf("Error fetching farmer: %v\n", err)
		return
	}
	if len(result) == 0 || string(result) == "null" {
		fmt.Printf("No farmer record for %s\n", addr)
		return
	}
	var farmer struct {
		Address    string   `json:"address"`
		TotalScore uint64   `json:"totalScore"`
		LastClaim  uint64   `json:"lastClaim"`
		Practices  []uint32 `json:"practices"`
	}
	if err := json.Unmarshal(result, &farmer); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	fmt.Printf("Farmer: %s\n", farmer.Address)
	fmt.Printf("  Total score: %d\n", farmer.TotalScore)
	if farmer.LastClaim == 0 {
		fmt.Println("  Last claim:  never")
	} else {
		fmt.Printf("  Last claim:  %s\n", time.Unix(int64(farmer.LastClaim), 0).UTC().Format(time.RFC3339))
	}
	fmt.Printf("  Practices:   %v\n", farmer.Practices)
}

func getPractice(id uint32) {
	result, err := rpcCall("registry_getPractice", map[string]uint32{"practiceId": id})
	if err != nil {
		fmt.Printf("Error fetching practice: %v\n", err)
		return
	}
	if len(result) == 0 || string(result) == "null" {
		fmt.Printf("No practice with id %d\n", id)
		return
	}
	var practice struct {
		Name   string `json:"name"`
		Score  uint64 `json:"score"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(result, &practice); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	fmt.Printf("Practice %d: %s (score %d, active %v)\n", id, practice.Name, practice.Score, practice.Active)
}

func simpleCall(method string, params interface{}) {
	if _, err := rpcCall(method, params); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK")
}

func trimQuotes(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func rpcCall(method string, params interface{}) (json.RawMessage, error) {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{},
	}
	if params != nil {
		request["params"] = []interface{}{params}
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(rpcAuthToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int         `json:"code"`
			Message string      `json:"message"`
			Data    interface{} `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("%s (code %d): %v", decoded.Error.Message, decoded.Error.Code, decoded.Error.Data)
	}
	return decoded.Result, nil
}
