package presale

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// presaleABIJSON covers the view methods, owner actions, and events the
// dashboard consumes. Amounts are uint256 base units throughout.
const presaleABIJSON = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"saleToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"paymentToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"paused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"whitelistEnabled","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isWhitelisted","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"salePrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"hardCap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"softCap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"startTime","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"endTime","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"claimStart","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"claimPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"initialUnlockPercent","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"periodicUnlockPercent","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalTokensSold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalRaised","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"presaleState","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"participantCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"participants","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"totalPurchased","type":"uint256"},{"name":"totalPaid","type":"uint256"},{"name":"totalClaimed","type":"uint256"},{"name":"entryCount","type":"uint256"}]},
  {"type":"function","name":"participationDetail","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"paid","type":"uint256"},{"name":"claimed","type":"uint256"},{"name":"stakingOption","type":"uint256"},{"name":"purchasedAt","type":"uint256"}]},
  {"type":"function","name":"estimatedRewards","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"setPresaleState","stateMutability":"nonpayable","inputs":[{"name":"state","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"setSalePrice","stateMutability":"nonpayable","inputs":[{"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setCaps","stateMutability":"nonpayable","inputs":[{"name":"soft","type":"uint256"},{"name":"hard","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setUnlockPercents","stateMutability":"nonpayable","inputs":[{"name":"initial","type":"uint256"},{"name":"periodic","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setClaimPeriod","stateMutability":"nonpayable","inputs":[{"name":"period","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"updateWhitelist","stateMutability":"nonpayable","inputs":[{"name":"users","type":"address[]"},{"name":"status","type":"bool"}],"outputs":[]},
  {"type":"function","name":"depositTokens","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdrawPayment","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdrawUnsoldTokens","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"event","name":"TokensPurchased","inputs":[{"name":"buyer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"paid","type":"uint256","indexed":false},{"name":"stakingOption","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"TokensClaimed","inputs":[{"name":"claimant","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"RewardClaimed","inputs":[{"name":"claimant","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"PaymentWithdrawn","inputs":[{"name":"recipient","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"WhitelistUpdated","inputs":[{"name":"user","type":"address","indexed":true},{"name":"status","type":"bool","indexed":false}],"anonymous":false}
]`

// erc20ABIJSON is the fragment of ERC-20 the dashboard reads.
const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

var (
	presaleABI abi.ABI
	erc20ABI   abi.ABI

	// Event topic0 hashes, used to route decoded logs.
	purchaseTopic   common.Hash
	claimTopic      common.Hash
	rewardTopic     common.Hash
	withdrawalTopic common.Hash
	whitelistTopic  common.Hash
)

func init() {
	var err error
	presaleABI, err = abi.JSON(strings.NewReader(presaleABIJSON))
	if err != nil {
		panic("presale: parse contract ABI: " + err.Error())
	}
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("presale: parse erc20 ABI: " + err.Error())
	}

	purchaseTopic = presaleABI.Events["TokensPurchased"].ID
	claimTopic = presaleABI.Events["TokensClaimed"].ID
	rewardTopic = presaleABI.Events["RewardClaimed"].ID
	withdrawalTopic = presaleABI.Events["PaymentWithdrawn"].ID
	whitelistTopic = presaleABI.Events["WhitelistUpdated"].ID
}
